// Package sri contiene la lógica de dominio de comprobantes electrónicos SRI (Ecuador):
// clave de acceso, modelo de factura, validaciones y cálculo de totales.
package sri

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
	"github.com/jhoicas/sri-facturacion/pkg/validation"
)

// Longitudes fijas de la clave de acceso (Ficha Técnica, tabla 1).
const (
	AccessKeyLength     = 49
	accessKeyBaseLength = 48

	sequentialWidth  = 9
	numericCodeWidth = 8
)

// AccessKeyInput datos de negocio con los que se arma la clave de acceso.
// Se construye una vez por comprobante y no se modifica.
type AccessKeyInput struct {
	IssueDate     time.Time `json:"issueDate"`
	DocumentType  string    `json:"documentType" validate:"required,len=2,digits"`
	RUC           string    `json:"ruc" validate:"required,len=13,digits"`
	Environment   string    `json:"environment" validate:"required,oneof=1 2"`
	Establishment string    `json:"establishment" validate:"required,len=3,digits"`
	EmissionPoint string    `json:"emissionPoint" validate:"required,len=3,digits"`
	Sequential    string    `json:"sequential" validate:"required,max=9,digits"`
	// NumericCode código numérico de 8 dígitos; vacío = aleatorio en cada llamada.
	NumericCode  string `json:"numericCode" validate:"omitempty,max=8,digits"`
	EmissionType string `json:"emissionType" validate:"omitempty,len=1,digits"`
}

// AccessKeyParts campos recuperados de una clave de acceso por posición fija.
type AccessKeyParts struct {
	IssueDate     time.Time `json:"issueDate"`
	DocumentType  string    `json:"documentType"`
	RUC           string    `json:"ruc"`
	Environment   string    `json:"environment"`
	Establishment string    `json:"establishment"`
	EmissionPoint string    `json:"emissionPoint"`
	Sequential    string    `json:"sequential"`
	NumericCode   string    `json:"numericCode"`
	EmissionType  string    `json:"emissionType"`
	CheckDigit    string    `json:"checkDigit"`
}

// BuildAccessKey arma la clave de acceso de 49 dígitos:
//
//	fecha(8) + codDoc(2) + ruc(13) + ambiente(1) + estab(3) + ptoEmi(3) +
//	secuencial(9) + códigoNumérico(8) + tipoEmisión(1) + dígito verificador(1)
//
// Ningún campo se trunca: si excede su ancho devuelve *sri.ValidationError.
func BuildAccessKey(in AccessKeyInput) (string, error) {
	if err := ValidateAccessKeyInput(in); err != nil {
		return "", err
	}

	numericCode := in.NumericCode
	if numericCode == "" {
		var err error
		if numericCode, err = RandomNumericCode(); err != nil {
			return "", err
		}
	}
	emissionType := in.EmissionType
	if emissionType == "" {
		emissionType = sri.EmissionTypeNormal
	}

	var b strings.Builder
	b.Grow(AccessKeyLength)
	b.WriteString(in.IssueDate.Format("02012006"))
	b.WriteString(in.DocumentType)
	b.WriteString(in.RUC)
	b.WriteString(in.Environment)
	b.WriteString(in.Establishment)
	b.WriteString(in.EmissionPoint)
	b.WriteString(PadLeft(in.Sequential, sequentialWidth))
	b.WriteString(PadLeft(numericCode, numericCodeWidth))
	b.WriteString(emissionType)

	base := b.String()
	if len(base) != accessKeyBaseLength {
		return "", sri.NewValidationError("issueDate", "fecha fuera de rango (%d dígitos de base)", len(base))
	}
	return base + sri.ComputeCheckDigit(base), nil
}

// ValidateAccessKeyInput valida anchos y dominios antes de concatenar.
func ValidateAccessKeyInput(in AccessKeyInput) error {
	var errs []error
	if in.IssueDate.IsZero() {
		errs = append(errs, sri.NewValidationError("issueDate", "es obligatorio"))
	} else if y := in.IssueDate.Year(); y < 1000 || y > 9999 {
		errs = append(errs, sri.NewValidationError("issueDate", "año %d fuera de rango", y))
	}
	if err := validation.Struct(in); err != nil {
		errs = append(errs, err)
	}
	return joinErrors(errs)
}

// ParseAccessKey descompone una clave de acceso y verifica su dígito verificador.
func ParseAccessKey(key string) (*AccessKeyParts, error) {
	if len(key) != AccessKeyLength || !sri.IsDigits(key) {
		return nil, sri.NewValidationError("accessKey", "debe tener %d dígitos", AccessKeyLength)
	}
	base, check := key[:accessKeyBaseLength], key[accessKeyBaseLength:]
	if expected := sri.ComputeCheckDigit(base); expected != check {
		return nil, sri.NewValidationError("accessKey", "dígito verificador inválido: esperado %s, recibido %s", expected, check)
	}
	date, err := time.Parse("02012006", key[0:8])
	if err != nil {
		return nil, sri.NewValidationError("accessKey", "fecha inválida %q", key[0:8])
	}
	return &AccessKeyParts{
		IssueDate:     date,
		DocumentType:  key[8:10],
		RUC:           key[10:23],
		Environment:   key[23:24],
		Establishment: key[24:27],
		EmissionPoint: key[27:30],
		Sequential:    key[30:39],
		NumericCode:   key[39:47],
		EmissionType:  key[47:48],
		CheckDigit:    check,
	}, nil
}

// RandomNumericCode genera un código numérico de 8 dígitos con crypto/rand.
func RandomNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("sri: generar código numérico: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// PadLeft completa con ceros a la izquierda hasta width. No trunca.
func PadLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
