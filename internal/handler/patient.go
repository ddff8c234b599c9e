package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/middleware"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/service"
)

// PatientService is the patient API used by PatientHandler.
type PatientService interface {
	List(ctx context.Context) ([]*model.Patient, error)
	Get(ctx context.Context, id uint64) (*model.Patient, error)
	Create(ctx context.Context, actor service.Actor, in service.PatientInput) (*model.Patient, error)
	Update(ctx context.Context, actor service.Actor, id uint64, in service.PatientInput) (*model.Patient, error)
	Delete(ctx context.Context, actor service.Actor, id uint64) error
}

// PatientHandler serves /api/pacientes.  Every method runs behind the
// authenticator; role checks are applied when routes are registered.
type PatientHandler struct {
	Patients PatientService
}

func NewPatientHandler(p PatientService) *PatientHandler {
	return &PatientHandler{Patients: p}
}

func actorOf(id middleware.Identity) service.Actor {
	return service.Actor{ID: id.ID, Role: id.Role}
}

// patientID parses the :id path parameter.
func patientID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("ID de paciente inválido",
			apperror.FieldError{Field: "id", Message: "Debe ser un número entero positivo"})
	}
	return id, nil
}

func (h *PatientHandler) List(c echo.Context, _ middleware.Identity) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Patients.List(ctx)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", list)
}

func (h *PatientHandler) Get(c echo.Context, _ middleware.Identity) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Patients.Get(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", p)
}

func (h *PatientHandler) Create(c echo.Context, who middleware.Identity) error {
	var req service.PatientInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Patients.Create(ctx, actorOf(who), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, service.MsgPatientCreated, p)
}

// Update replaces the patient's fields with the request body.
func (h *PatientHandler) Update(c echo.Context, who middleware.Identity) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	var req service.PatientInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Patients.Update(ctx, actorOf(who), id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, service.MsgPatientUpdated, p)
}

func (h *PatientHandler) Delete(c echo.Context, who middleware.Identity) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Patients.Delete(ctx, actorOf(who), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, service.MsgPatientDeleted, nil)
}
