package sri

import (
	"errors"
	"fmt"
)

// Categorías de error del pipeline de comprobantes. Se comparan con errors.Is.
var (
	ErrValidation         = errors.New("sri: dato de entrada inválido")
	ErrSerialization      = errors.New("sri: el comprobante no cumple las reglas para generar el XML")
	ErrSigning            = errors.New("sri: error al firmar el comprobante")
	ErrInvalidCertificate = errors.New("sri: certificado de firma inválido")
)

// Subtipos de InvalidCertificateError. Permiten mostrar un mensaje accionable al operador.
var (
	ErrWrongPassword      = errors.New("contraseña del certificado incorrecta")
	ErrMissingPrivateKey  = errors.New("el archivo PKCS#12 no contiene llave privada")
	ErrMissingCertificate = errors.New("el archivo PKCS#12 no contiene certificado")
	ErrCorruptCertificate = errors.New("archivo PKCS#12 corrupto o con formato no soportado")
)

// ValidationError campo de entrada mal formado o fuera de su ancho fijo.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "sri: validación: " + e.Message
	}
	return fmt.Sprintf("sri: validación: %s: %s", e.Field, e.Message)
}

// Is permite errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError atajo para construir un *ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SerializationError los datos de la factura violan un invariante del XML
// (totales inconsistentes, montos negativos calculados, etc.).
type SerializationError struct {
	Message string
}

func (e *SerializationError) Error() string { return "sri: serialización: " + e.Message }

// Is permite errors.Is(err, ErrSerialization).
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// NewSerializationError atajo para construir un *SerializationError.
func NewSerializationError(format string, args ...any) *SerializationError {
	return &SerializationError{Message: fmt.Sprintf(format, args...)}
}

// SigningError fallo al parsear el XML, al leer la llave o al calcular la firma.
type SigningError struct {
	Step string
	Err  error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sri: firma (%s): %v", e.Step, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrSigning).
func (e *SigningError) Is(target error) bool { return target == ErrSigning }

// InvalidCertificateError el contenedor PKCS#12 no pudo abrirse. Kind es uno de
// ErrWrongPassword, ErrMissingPrivateKey, ErrMissingCertificate o ErrCorruptCertificate.
type InvalidCertificateError struct {
	Kind error
	Err  error
}

func (e *InvalidCertificateError) Error() string {
	msg := "sri: certificado inválido: " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidCertificateError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrInvalidCertificate) y errors.Is(err, <subtipo>).
func (e *InvalidCertificateError) Is(target error) bool {
	return target == ErrInvalidCertificate || target == e.Kind
}
