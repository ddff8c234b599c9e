package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/model"
)

// msgInvalidInput is the top-level message for validation failures
// that have no more specific wording.
const msgInvalidInput = "Datos inválidos"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names so clients can match them
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hasdigit", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsDigit) >= 0
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	// max counts runes; bcrypt refuses more than 72 bytes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// fieldMessages overrides the generic wording for specific field/tag pairs.
var fieldMessages = map[string]string{
	"nombre.required":   "El nombre es obligatorio",
	"nombre.min":        "El nombre debe tener al menos 3 caracteres",
	"email.required":    "El email es obligatorio",
	"email.email":       "Debe ser un email válido",
	"password.required": "La contraseña es obligatoria",
	"password.min":      "La contraseña debe tener al menos 6 caracteres",
	"password.hasdigit": "La contraseña debe contener al menos un número",
	"password.maxbytes": "La contraseña es demasiado larga",
	"rol.role":          "Rol inválido",
	"token.required":    "Token es obligatorio",
	"apellido.required": "El apellido es obligatorio",
	"edad.required":     "La edad es obligatoria",
	"edad.gte":          "La edad debe estar entre 0 y 150",
	"edad.lte":          "La edad debe estar entre 0 y 150",
}

func fieldMessage(fe validator.FieldError) string {
	if m, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "max":
		return fmt.Sprintf("El campo %s admite como máximo %s caracteres", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("El campo %s debe ser un email válido", fe.Field())
	default:
		return fmt.Sprintf("El campo %s no es válido", fe.Field())
	}
}

// validateStruct runs the struct tags on in and converts failures into a
// ValidationError carrying one FieldError per failing field.
func validateStruct(in any, msg string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperror.Internal("Error interno del servidor", err)
	}
	fields := make([]apperror.FieldError, 0, len(ves))
	for _, fe := range ves {
		fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperror.Validation(msg, fields...)
}

// trimOptional trims s and maps blank values to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
