package sri_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const testAccessKey = "1501202401179001234500110010010000001231234567814"

func buildTestInput() domainsri.AccessKeyInput {
	return domainsri.AccessKeyInput{
		IssueDate:     time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		DocumentType:  "01",
		RUC:           "1790012345001",
		Environment:   "1",
		Establishment: "001",
		EmissionPoint: "001",
		Sequential:    "000000123",
		NumericCode:   "12345678",
		EmissionType:  "1",
	}
}

// validationFields recorre un errors.Join y devuelve los campos de cada *sri.ValidationError.
func validationFields(err error) []string {
	if ve, ok := err.(*sri.ValidationError); ok {
		return []string{ve.Field}
	}
	var fields []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			fields = append(fields, validationFields(inner)...)
		}
	}
	return fields
}

// ──────────────────────────────────────────────────────────────────────────────
// BuildAccessKey
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildAccessKey_VectorExacto(t *testing.T) {
	key, err := domainsri.BuildAccessKey(buildTestInput())
	require.NoError(t, err)
	assert.Equal(t, testAccessKey, key)
	assert.Len(t, key, domainsri.AccessKeyLength)
}

func TestBuildAccessKey_RoundTripDigitoVerificador(t *testing.T) {
	key, err := domainsri.BuildAccessKey(buildTestInput())
	require.NoError(t, err)
	assert.Equal(t, sri.ComputeCheckDigit(key[:48]), key[48:],
		"recalcular sobre los 48 primeros dígitos debe reproducir el dígito 49")
}

func TestBuildAccessKey_RellenaSecuencialYCodigo(t *testing.T) {
	in := buildTestInput()
	in.Sequential = "123"
	in.NumericCode = "42"
	key, err := domainsri.BuildAccessKey(in)
	require.NoError(t, err)

	parts, err := domainsri.ParseAccessKey(key)
	require.NoError(t, err)
	assert.Equal(t, "000000123", parts.Sequential)
	assert.Equal(t, "00000042", parts.NumericCode)
}

func TestBuildAccessKey_DescomposicionRecuperaCampos(t *testing.T) {
	in := buildTestInput()
	key, err := domainsri.BuildAccessKey(in)
	require.NoError(t, err)

	parts, err := domainsri.ParseAccessKey(key)
	require.NoError(t, err)
	assert.True(t, parts.IssueDate.Equal(in.IssueDate))
	assert.Equal(t, in.DocumentType, parts.DocumentType)
	assert.Equal(t, in.RUC, parts.RUC)
	assert.Equal(t, in.Environment, parts.Environment)
	assert.Equal(t, in.Establishment, parts.Establishment)
	assert.Equal(t, in.EmissionPoint, parts.EmissionPoint)
	assert.Equal(t, in.Sequential, parts.Sequential)
	assert.Equal(t, in.NumericCode, parts.NumericCode)
	assert.Equal(t, "1", parts.EmissionType)
}

func TestBuildAccessKey_CodigoAleatorioSiNoSeEnvia(t *testing.T) {
	in := buildTestInput()
	in.NumericCode = ""

	for i := 0; i < 20; i++ {
		key, err := domainsri.BuildAccessKey(in)
		require.NoError(t, err)
		require.Len(t, key, 49)
		assert.Equal(t, testAccessKey[:39], key[:39], "los campos de negocio no cambian")
		assert.Equal(t, sri.ComputeCheckDigit(key[:48]), key[48:])
	}
}

func TestBuildAccessKey_TipoEmisionPorDefecto(t *testing.T) {
	in := buildTestInput()
	in.EmissionType = ""
	key, err := domainsri.BuildAccessKey(in)
	require.NoError(t, err)
	assert.Equal(t, testAccessKey, key)
}

func TestBuildAccessKey_ErrorSiSecuencialExcedeAncho(t *testing.T) {
	in := buildTestInput()
	in.Sequential = "1234567890"
	_, err := domainsri.BuildAccessKey(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, sri.ErrValidation)
	assert.Contains(t, validationFields(err), "sequential", "nunca se trunca en silencio")
}

func TestBuildAccessKey_ErroresDeCampo(t *testing.T) {
	cases := []struct {
		name  string
		mod   func(*domainsri.AccessKeyInput)
		field string
	}{
		{"ruc corto", func(in *domainsri.AccessKeyInput) { in.RUC = "179001234500" }, "ruc"},
		{"ruc con letras", func(in *domainsri.AccessKeyInput) { in.RUC = "17900123450A1" }, "ruc"},
		{"ambiente", func(in *domainsri.AccessKeyInput) { in.Environment = "3" }, "environment"},
		{"establecimiento", func(in *domainsri.AccessKeyInput) { in.Establishment = "1" }, "establishment"},
		{"punto de emisión", func(in *domainsri.AccessKeyInput) { in.EmissionPoint = "0011" }, "emissionPoint"},
		{"tipo de documento", func(in *domainsri.AccessKeyInput) { in.DocumentType = "1" }, "documentType"},
		{"código numérico", func(in *domainsri.AccessKeyInput) { in.NumericCode = "123456789" }, "numericCode"},
		{"secuencial no numérico", func(in *domainsri.AccessKeyInput) { in.Sequential = "12-3" }, "sequential"},
		{"fecha vacía", func(in *domainsri.AccessKeyInput) { in.IssueDate = time.Time{} }, "issueDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := buildTestInput()
			tc.mod(&in)
			key, err := domainsri.BuildAccessKey(in)
			require.Error(t, err)
			assert.Empty(t, key, "no debe devolver salida parcial")
			assert.ErrorIs(t, err, sri.ErrValidation)
			assert.Contains(t, validationFields(err), tc.field)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ParseAccessKey
// ──────────────────────────────────────────────────────────────────────────────

func TestParseAccessKey_DigitoAlterado(t *testing.T) {
	bad := testAccessKey[:48] + "5"
	_, err := domainsri.ParseAccessKey(bad)
	assert.ErrorIs(t, err, sri.ErrValidation)
}

func TestParseAccessKey_LongitudInvalida(t *testing.T) {
	_, err := domainsri.ParseAccessKey(testAccessKey[:48])
	assert.ErrorIs(t, err, sri.ErrValidation)

	_, err = domainsri.ParseAccessKey(testAccessKey[:48] + "A")
	assert.ErrorIs(t, err, sri.ErrValidation)
}
