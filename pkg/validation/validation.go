// Package validation centraliza go-playground/validator para DTOs y documentos SRI.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Nombres de campo según la etiqueta json, para que el error coincida con el payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return sri.IsDigits(fl.Field().String())
	})
	return v
}

// Struct valida s con sus etiquetas `validate`. Devuelve nil o un errors.Join de
// *sri.ValidationError (uno por campo), de modo que errors.Is(err, sri.ErrValidation) es true.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &sri.ValidationError{Message: err.Error()}
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &sri.ValidationError{Field: fieldPath(fe), Message: message(fe)})
	}
	return errors.Join(errs...)
}

// fieldPath quita el nombre del struct raíz: "InvoiceDocument.buyer.name" → "buyer.name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "len":
		return "debe tener exactamente " + fe.Param() + " caracteres"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "admite como máximo " + fe.Param() + " elementos"
		}
		return "admite como máximo " + fe.Param() + " caracteres"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "requiere al menos " + fe.Param() + " elementos"
		}
		return "requiere al menos " + fe.Param() + " caracteres"
	case "digits":
		return "solo admite dígitos"
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "email":
		return "no es un correo válido"
	default:
		return "no cumple la regla " + fe.Tag()
	}
}
