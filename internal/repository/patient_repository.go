package repository

// This file holds the queries over the `pacientes` table.  Listing and
// single lookups join `usuarios` so the creator's name travels with the
// record; the join is a LEFT JOIN because creado_por becomes NULL when
// the creating account is removed.

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/clinic-patients/internal/model"
)

// PatientRepo encapsulates all database queries related to patients.
type PatientRepo struct {
	db *sql.DB
}

func NewPatientRepo(db *sql.DB) *PatientRepo {
	return &PatientRepo{db: db}
}

const patientSelect = `SELECT p.id, p.nombre, p.apellido, p.edad, p.telefono, p.email, p.diagnostico,
	       p.fecha_registro, p.creado_por, u.nombre
	FROM pacientes p
	LEFT JOIN usuarios u ON u.id = p.creado_por`

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (*model.Patient, error) {
	p := new(model.Patient)
	// nullable columns scan straight into the pointer fields
	err := s.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &p.Phone, &p.Email, &p.Diagnosis,
		&p.RegisteredAt, &p.CreatedBy, &p.CreatedByName)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every patient, newest registration first.
func (r *PatientRepo) List(ctx context.Context) ([]*model.Patient, error) {
	rows, err := r.db.QueryContext(ctx, patientSelect+" ORDER BY p.fecha_registro DESC, p.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a patient by id.  It returns ErrPatientNotFound if no
// row matches.
func (r *PatientRepo) GetByID(ctx context.Context, id uint64) (*model.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx, patientSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

// Create inserts p and refreshes it from the database so that the
// generated id, fecha_registro and creator name are populated.
func (r *PatientRepo) Create(ctx context.Context, p *model.Patient) error {
	const q = `INSERT INTO pacientes (nombre, apellido, edad, telefono, email, diagnostico, creado_por)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.FirstName, p.LastName, p.Age, p.Phone, p.Email, p.Diagnosis, p.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *fresh
	return nil
}

// Update overwrites every editable column of patient p.ID.  Nil optional
// fields are written as NULL.  creado_por and fecha_registro are left
// untouched.  The refreshed row is copied back into p.
func (r *PatientRepo) Update(ctx context.Context, p *model.Patient) error {
	const q = `UPDATE pacientes
	           SET nombre = ?, apellido = ?, edad = ?, telefono = ?, email = ?, diagnostico = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		p.FirstName, p.LastName, p.Age, p.Phone, p.Email, p.Diagnosis, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatientNotFound
	}
	fresh, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *fresh
	return nil
}

// Delete removes a patient permanently.
func (r *PatientRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pacientes WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatientNotFound
	}
	return nil
}
