package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/middleware"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/service"
)

// AuthService is the account API used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Me(ctx context.Context, id uint64) (*model.User, error)
}

// ResetService is the password reset API used by AuthHandler.
type ResetService interface {
	Request(ctx context.Context, in service.ForgotPasswordInput) error
	Consume(ctx context.Context, in service.ResetPasswordInput) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth   AuthService
	Resets ResetService
}

func NewAuthHandler(auth AuthService, resets ResetService) *AuthHandler {
	return &AuthHandler{Auth: auth, Resets: resets}
}

// Register: create user and return a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Usuario registrado exitosamente", res)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Login exitoso", res)
}

// ForgotPassword answers identically whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req service.ForgotPasswordInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := h.Resets.Request(ctx, req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, service.MsgResetRequested, nil)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req service.ResetPasswordInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Resets.Consume(ctx, req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Contraseña actualizada exitosamente", nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context, id middleware.Identity) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Me(ctx, id.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", u)
}
