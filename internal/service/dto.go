package service

import "github.com/iliyamo/clinic-patients/internal/model"

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name     string `json:"nombre" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72,hasdigit"`
	Role     string `json:"rol" validate:"omitempty,role"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordInput is the body of POST /api/auth/forgot-password.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput is the body of POST /api/auth/reset-password.
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72,hasdigit"`
}

// PatientInput is the body of POST and PUT /api/pacientes.  Age is a
// pointer so that a missing value can be told apart from zero.
type PatientInput struct {
	FirstName string  `json:"nombre" validate:"required,max=100"`
	LastName  string  `json:"apellido" validate:"required,max=100"`
	Age       *int    `json:"edad" validate:"required,gte=0,lte=150"`
	Phone     *string `json:"telefono" validate:"omitempty,max=20"`
	Email     *string `json:"email" validate:"omitempty,email,max=150"`
	Diagnosis *string `json:"diagnostico"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"usuario"`
}

// Actor is the authenticated caller performing a patient mutation.
type Actor struct {
	ID   uint64
	Role model.Role
}
