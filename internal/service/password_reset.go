package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/mailer"
	"github.com/iliyamo/clinic-patients/internal/repository"
	"github.com/iliyamo/clinic-patients/internal/utils"
)

const (
	// MsgResetRequested is returned for every well-formed forgot-password
	// request, whether or not the email belongs to an account.
	MsgResetRequested = "Si el email existe, recibirás instrucciones para recuperar tu contraseña"
	msgResetInvalid   = "Token inválido o expirado"
	msgResetFailed    = "Error al procesar la solicitud"
)

// ResetStore persists reset tokens.
type ResetStore interface {
	Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}

// PasswordResetService issues single-use reset links and consumes them.
type PasswordResetService struct {
	users    UserStore
	resets   ResetStore
	hasher   PasswordHasher
	notifier mailer.Notifier
	appURL   string
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewPasswordResetService(users UserStore, resets ResetStore, hasher PasswordHasher,
	notifier mailer.Notifier, appURL string, ttl time.Duration, log zerolog.Logger) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		resets:   resets,
		hasher:   hasher,
		notifier: notifier,
		appURL:   strings.TrimRight(appURL, "/"),
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source.  Used by tests.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	s.now = now
	return s
}

// ResetURL builds the link emailed to the user.
func (s *PasswordResetService) ResetURL(token string) string {
	return s.appURL + "/reset-password.html?token=" + url.QueryEscape(token)
}

// Request starts a reset for the account owning in.Email.  Unknown
// addresses return nil without side effects.
func (s *PasswordResetService) Request(ctx context.Context, in ForgotPasswordInput) error {
	in.Email = repository.NormalizeEmail(in.Email)
	if err := validateStruct(in, msgInvalidInput); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Internal(msgResetFailed, err)
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		return apperror.Internal(msgResetFailed, err)
	}
	exp := s.now().UTC().Add(s.ttl)
	if err := s.resets.Create(ctx, u.ID, utils.HashToken(raw), exp); err != nil {
		return apperror.Internal(msgResetFailed, err)
	}
	if err := s.notifier.SendPasswordReset(ctx, u.Email, u.Name, s.ResetURL(raw)); err != nil {
		return apperror.Internal("No se pudo enviar el email de recuperación", err)
	}
	s.log.Info().Uint64("user_id", u.ID).Time("expires_at", exp).Msg("password reset requested")
	return nil
}

// Consume sets a new password using a reset token.  Unknown, expired and
// used tokens are rejected with the same message.
func (s *PasswordResetService) Consume(ctx context.Context, in ResetPasswordInput) error {
	in.Token = strings.TrimSpace(in.Token)
	if err := validateStruct(in, msgInvalidInput); err != nil {
		return err
	}

	// hash outside the transaction so no row lock is held during bcrypt
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return apperror.Internal("Error al restablecer contraseña", err)
	}
	err = s.resets.Consume(ctx, utils.HashToken(in.Token), hash, s.now().UTC())
	if errors.Is(err, repository.ErrResetNotFound) {
		return apperror.Validation(msgResetInvalid)
	}
	if err != nil {
		return apperror.Internal("Error al restablecer contraseña", err)
	}
	return nil
}
