package router // package router wires handlers and middleware onto Echo

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/clinic-patients/internal/handler"
	"github.com/iliyamo/clinic-patients/internal/middleware"
	"github.com/iliyamo/clinic-patients/internal/model"
)

// Deps holds everything New needs to build the HTTP server.
type Deps struct {
	Log          zerolog.Logger
	Auth         *handler.AuthHandler
	Patients     *handler.PatientHandler
	Ready        *handler.ReadyHandler
	Authn        *middleware.Authenticator
	LoginLimiter echo.MiddlewareFunc
	APILimiter   echo.MiddlewareFunc // optional
	CORSOrigins  []string
	StaticDir    string // empty disables static files
	Secure       bool   // send HSTS and related headers

	// TrustedProxies are the only peers whose X-Forwarded-For is used to
	// find the client address.  Empty means the socket address is used.
	TrustedProxies []*net.IPNet
}

// New returns an Echo instance with the global middleware stack and all
// routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Log))
	e.Use(middleware.Recovery(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))
	secure := echomw.DefaultSecureConfig
	if d.Secure {
		secure.HSTSMaxAge = 31536000
	}
	e.Use(echomw.SecureWithConfig(secure))

	RegisterRoutes(e, d.Ready)
	api := e.Group("/api")
	if d.APILimiter != nil {
		api.Use(d.APILimiter)
	}
	RegisterAuth(api, d.Auth, d.Authn, d.LoginLimiter)
	RegisterPatients(api, d.Patients, d.Authn)
	RegisterStatic(e, d.StaticDir)
	return e
}

// ipExtractor decides what RealIP returns, and so what the rate limiters
// key on.  Forwarded headers are ignored unless the peer is a listed proxy.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range proxies {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterRoutes registers the probes used by orchestrators.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadyHandler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
}

// RegisterAuth registers /api/auth.  Only login is rate limited; /me
// needs a valid token but no particular role.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, authn *middleware.Authenticator, loginLimiter echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	if loginLimiter != nil {
		g.POST("/login", a.Login, loginLimiter)
	} else {
		g.POST("/login", a.Login)
	}
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/me", authn.Wrap(a.Me))
}

// RegisterPatients registers /api/pacientes.  Reads need any
// authenticated role; create and update need admin or doctor; delete
// needs admin.
func RegisterPatients(api *echo.Group, p *handler.PatientHandler, authn *middleware.Authenticator) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleDoctor)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	g := api.Group("/pacientes")
	g.GET("", authn.Wrap(p.List))
	g.GET("/:id", authn.Wrap(p.Get))
	g.POST("", authn.Wrap(staff(p.Create)))
	g.PUT("/:id", authn.Wrap(staff(p.Update)))
	g.DELETE("/:id", authn.Wrap(adminOnly(p.Delete)))
}

// RegisterStatic serves the browser frontend from dir with login.html
// as the index page.  API paths never fall through to files.
func RegisterStatic(e *echo.Echo, dir string) {
	if dir == "" {
		return
	}
	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:       ".",
		Filesystem: http.Dir(dir),
		Index:      "login.html",
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))
}
