// Package service implements the clinic's business rules on top of the
// repositories.  Services return *apperror.Error values for every
// failure a client should see; the HTTP layer only renders them.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/repository"
	"github.com/iliyamo/clinic-patients/internal/utils"
)

const (
	msgEmailTaken       = "Este email ya está registrado"
	msgBadCredentials   = "Email o contraseña incorrectos"
	msgAccountDisabled  = "Tu cuenta ha sido desactivada. Contacta al administrador."
	msgUserNotFound     = "Usuario no encontrado"
	msgInternal         = "Error interno del servidor"
	dummyPasswordSource = "clinic-timing-equaliser-0"
)

// UserStore is the account storage used by the auth services.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// TokenSigner issues access tokens.
type TokenSigner interface {
	Issue(id uint64, email string, role model.Role) (utils.AccessToken, error)
}

type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenSigner
	log    zerolog.Logger

	// compared against when the email is unknown so that a miss costs
	// the same bcrypt work as a wrong password
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenSigner, log zerolog.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash(dummyPasswordSource)
	if err != nil {
		return nil, err
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log, dummyHash: dummy}, nil
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if err := validateStruct(in, msgInvalidInput); err != nil {
		return nil, err
	}
	role := model.Role(in.Role)
	if role == "" {
		role = model.RoleReceptionist
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.Conflict(msgEmailTaken)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, apperror.Internal("Error al registrar usuario", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Internal("Error al registrar usuario", err)
	}
	id, err := s.users.Create(ctx, in.Name, in.Email, hash, role)
	if errors.Is(err, repository.ErrEmailExists) {
		// lost a race with a concurrent registration
		return nil, apperror.Conflict(msgEmailTaken)
	}
	if err != nil {
		return nil, apperror.Internal("Error al registrar usuario", err)
	}

	u := model.User{ID: id, Name: in.Name, Email: in.Email, Role: role, Active: true}
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperror.Internal("Error al registrar usuario", err)
	}
	s.log.Info().Uint64("user_id", id).Str("rol", string(role)).Msg("user registered")
	return &AuthResult{Token: tok.Token, User: u.Summary()}, nil
}

// Login checks credentials and issues a token.  Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = repository.NormalizeEmail(in.Email)
	if err := validateStruct(in, msgInvalidInput); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.hasher.Verify(s.dummyHash, in.Password)
		return nil, apperror.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return nil, apperror.Internal("Error al iniciar sesión", err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return nil, apperror.Unauthorized(msgBadCredentials)
	}
	if !u.Active {
		return nil, apperror.Forbidden(msgAccountDisabled)
	}

	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperror.Internal("Error al iniciar sesión", err)
	}
	return &AuthResult{Token: tok.Token, User: u.Summary()}, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperror.Internal("Error al obtener perfil", err)
	}
	return &u, nil
}
