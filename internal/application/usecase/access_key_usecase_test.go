package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

func TestAccessKeyUseCase_BuildConCodigoFijo(t *testing.T) {
	uc := NewAccessKeyUseCase()

	res, err := uc.Build(dto.AccessKeyRequest{
		IssueDate:     "2024-01-15",
		DocumentType:  "01",
		RUC:           "1790012345001",
		Environment:   "1",
		Establishment: "001",
		EmissionPoint: "001",
		Sequential:    "123",
		NumericCode:   "12345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "1501202401179001234500110010010000001231234567814", res.AccessKey)
	assert.Equal(t, "000000123", res.Sequential)
	assert.Equal(t, "1", res.EmissionType)
	assert.Equal(t, "4", res.CheckDigit)
}

func TestAccessKeyUseCase_BuildRechazaCamposInvalidos(t *testing.T) {
	_, err := NewAccessKeyUseCase().Build(dto.AccessKeyRequest{
		IssueDate:     "15/01/2024",
		DocumentType:  "01",
		RUC:           "179001234500",
		Environment:   "3",
		Establishment: "001",
		EmissionPoint: "001",
		Sequential:    "1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sri.ErrValidation))
}

func TestAccessKeyUseCase_ParseDigitoInvalido(t *testing.T) {
	_, err := NewAccessKeyUseCase().Parse("1501202401179001234500110010010000001231234567810")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sri.ErrValidation))
}
