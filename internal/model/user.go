package model

import "time"

// Role is the access level of a clinic staff account.  It is stored
// as-is in the `usuarios.rol` column and embedded in access tokens.
type Role string

const (
    RoleAdmin        Role = "admin"
    RoleDoctor       Role = "doctor"
    RoleReceptionist Role = "recepcionista"
)

// Roles lists every role accepted at registration.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleReceptionist}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    for _, known := range Roles {
        if r == known {
            return true
        }
    }
    return false
}

// User represents a staff account as stored in the `usuarios` table.
// The password hash is never serialised.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name, shown as the creator of patient records.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash of the password.
//  Role         – admin, doctor or recepcionista.
//  Active       – inactive accounts cannot log in.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `json:"id"`             // usuarios.id
    Name         string    `json:"nombre"`         // usuarios.nombre
    Email        string    `json:"email"`          // usuarios.email
    PasswordHash string    `json:"-"`              // usuarios.password
    Role         Role      `json:"rol"`            // usuarios.rol
    Active       bool      `json:"activo"`         // usuarios.activo
    CreatedAt    time.Time `json:"fecha_creacion"` // usuarios.fecha_creacion
}

// UserSummary is the public part of a user returned next to a freshly
// issued token on register and login.
type UserSummary struct {
    ID    uint64 `json:"id"`
    Name  string `json:"nombre"`
    Email string `json:"email"`
    Role  Role   `json:"rol"`
}

// Summary returns the token-response view of u.
func (u User) Summary() UserSummary {
    return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
