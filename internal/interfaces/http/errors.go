package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Códigos de error por subtipo de certificado inválido.
var certificateCodes = []struct {
	kind error
	code string
}{
	{sri.ErrWrongPassword, "CERT_WRONG_PASSWORD"},
	{sri.ErrMissingPrivateKey, "CERT_MISSING_KEY"},
	{sri.ErrMissingCertificate, "CERT_MISSING_CERTIFICATE"},
	{sri.ErrCorruptCertificate, "CERT_CORRUPT"},
}

// writeError traduce errores de dominio y del pipeline SRI a status HTTP + dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, sri.ErrValidation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: fieldErrors(err)}
	case errors.Is(err, sri.ErrInvalidCertificate):
		code := "CERT_INVALID"
		for _, cc := range certificateCodes {
			if errors.Is(err, cc.kind) {
				code = cc.code
				break
			}
		}
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: code, Message: err.Error()}
	case errors.Is(err, infrasri.ErrCertificateNotConfigured):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "CERT_NOT_CONFIGURED", Message: err.Error()}
	case errors.Is(err, sri.ErrSerialization):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "SERIALIZATION", Message: err.Error()}
	case errors.Is(err, sri.ErrSigning):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "SIGNING", Message: err.Error()}
	case errors.Is(err, infrasri.ErrSOAPFault), errors.Is(err, infrasri.ErrTransport):
		return fiber.StatusBadGateway, dto.ErrorResponse{Code: "SRI_UNAVAILABLE", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TIMEOUT", Message: "tiempo de espera agotado"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	}
}

// fieldErrors aplana un errors.Join de *sri.ValidationError en la lista de campos.
func fieldErrors(err error) []dto.FieldError {
	var out []dto.FieldError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *sri.ValidationError
		if errors.As(e, &ve) {
			out = append(out, dto.FieldError{Field: ve.Field, Message: ve.Message})
		}
	}
	walk(err)
	return out
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
