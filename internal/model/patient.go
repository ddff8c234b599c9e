package model

import "time"

// Patient represents a clinic patient as stored in the `pacientes`
// table.  Phone, Email and Diagnosis are nullable.  CreatedBy is the
// account that registered the patient; it is kept for auditing and is
// not an access boundary.  CreatedByName is only filled by queries that
// join the creating user.
type Patient struct {
    ID            uint64    `json:"id"`
    FirstName     string    `json:"nombre"`
    LastName      string    `json:"apellido"`
    Age           int       `json:"edad"`
    Phone         *string   `json:"telefono"`
    Email         *string   `json:"email"`
    Diagnosis     *string   `json:"diagnostico"`
    RegisteredAt  time.Time `json:"fecha_registro"`
    CreatedBy     *uint64   `json:"creado_por"`
    CreatedByName *string   `json:"creado_por_nombre,omitempty"`
}
