package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/queue"
	"github.com/iliyamo/clinic-patients/internal/repository"
)

const (
	msgPatientNotFound = "Paciente no encontrado"
	msgPatientRequired = "Nombre, apellido y edad son obligatorios"
	MsgPatientCreated  = "Paciente creado exitosamente"
	MsgPatientUpdated  = "Paciente actualizado exitosamente"
	MsgPatientDeleted  = "Paciente eliminado exitosamente"
)

// PatientStore is the patient storage used by PatientService.
type PatientStore interface {
	List(ctx context.Context) ([]*model.Patient, error)
	GetByID(ctx context.Context, id uint64) (*model.Patient, error)
	Create(ctx context.Context, p *model.Patient) error
	Update(ctx context.Context, p *model.Patient) error
	Delete(ctx context.Context, id uint64) error
}

// PatientService implements patient record CRUD.  Role checks happen in
// the HTTP layer before these methods are reached.
type PatientService struct {
	patients  PatientStore
	publisher queue.Publisher
	log       zerolog.Logger
}

func NewPatientService(patients PatientStore, publisher queue.Publisher, log zerolog.Logger) *PatientService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &PatientService{patients: patients, publisher: publisher, log: log}
}

func (s *PatientService) List(ctx context.Context) ([]*model.Patient, error) {
	list, err := s.patients.List(ctx)
	if err != nil {
		return nil, apperror.Internal("Error al obtener pacientes", err)
	}
	return list, nil
}

func (s *PatientService) Get(ctx context.Context, id uint64) (*model.Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, repository.ErrPatientNotFound) {
		return nil, apperror.NotFound(msgPatientNotFound)
	}
	if err != nil {
		return nil, apperror.Internal("Error al obtener paciente", err)
	}
	return p, nil
}

// Create stores a new patient registered by actor.
func (s *PatientService) Create(ctx context.Context, actor Actor, in PatientInput) (*model.Patient, error) {
	p, err := buildPatient(in)
	if err != nil {
		return nil, err
	}
	creator := actor.ID
	p.CreatedBy = &creator
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, apperror.Internal("Error al crear paciente", err)
	}
	s.publish(ctx, queue.ActionCreated, p.ID, actor)
	return p, nil
}

// Update replaces every editable field of patient id with in.  Optional
// fields missing from in are cleared.
func (s *PatientService) Update(ctx context.Context, actor Actor, id uint64, in PatientInput) (*model.Patient, error) {
	p, err := buildPatient(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	err = s.patients.Update(ctx, p)
	if errors.Is(err, repository.ErrPatientNotFound) {
		return nil, apperror.NotFound(msgPatientNotFound)
	}
	if err != nil {
		return nil, apperror.Internal("Error al actualizar paciente", err)
	}
	s.publish(ctx, queue.ActionUpdated, id, actor)
	return p, nil
}

// Delete removes patient id permanently.
func (s *PatientService) Delete(ctx context.Context, actor Actor, id uint64) error {
	err := s.patients.Delete(ctx, id)
	if errors.Is(err, repository.ErrPatientNotFound) {
		return apperror.NotFound(msgPatientNotFound)
	}
	if err != nil {
		return apperror.Internal("Error al eliminar paciente", err)
	}
	s.publish(ctx, queue.ActionDeleted, id, actor)
	return nil
}

// buildPatient validates in and maps it onto a fresh record.
func buildPatient(in PatientInput) (*model.Patient, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = trimOptional(in.Phone)
	in.Email = trimOptional(in.Email)
	in.Diagnosis = trimOptional(in.Diagnosis)

	msg := msgInvalidInput
	if in.FirstName == "" || in.LastName == "" || in.Age == nil {
		msg = msgPatientRequired
	}
	if err := validateStruct(in, msg); err != nil {
		return nil, err
	}
	return &model.Patient{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Age:       *in.Age,
		Phone:     in.Phone,
		Email:     in.Email,
		Diagnosis: in.Diagnosis,
	}, nil
}

// publish records an audit event.  Failures are logged and never reach
// the client; the mutation has already been committed.
func (s *PatientService) publish(ctx context.Context, action queue.Action, patientID uint64, actor Actor) {
	ev := queue.NewPatientEvent(action, patientID, actor.ID, string(actor.Role))
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.publisher.PublishPatientEvent(pctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event_id", ev.ID).
			Str("action", string(action)).
			Uint64("patient_id", patientID).
			Msg("audit event not published")
	}
}
