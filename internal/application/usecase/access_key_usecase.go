package usecase

import (
	"time"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
	"github.com/jhoicas/sri-facturacion/pkg/validation"
)

// AccessKeyUseCase genera y descompone claves de acceso sin persistir nada.
type AccessKeyUseCase struct{}

// NewAccessKeyUseCase construye el caso de uso.
func NewAccessKeyUseCase() *AccessKeyUseCase { return &AccessKeyUseCase{} }

// Build arma la clave de acceso. Un código numérico vacío se genera al azar.
func (uc *AccessKeyUseCase) Build(in dto.AccessKeyRequest) (*dto.AccessKeyResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	issueDate, err := time.Parse("2006-01-02", in.IssueDate)
	if err != nil {
		return nil, sri.NewValidationError("issue_date", "fecha inválida")
	}
	key, err := domainsri.BuildAccessKey(domainsri.AccessKeyInput{
		IssueDate:     issueDate,
		DocumentType:  in.DocumentType,
		RUC:           in.RUC,
		Environment:   in.Environment,
		Establishment: in.Establishment,
		EmissionPoint: in.EmissionPoint,
		Sequential:    in.Sequential,
		NumericCode:   in.NumericCode,
		EmissionType:  in.EmissionType,
	})
	if err != nil {
		return nil, err
	}
	return uc.Parse(key)
}

// Parse verifica el dígito verificador y devuelve los campos por posición.
func (uc *AccessKeyUseCase) Parse(key string) (*dto.AccessKeyResponse, error) {
	parts, err := domainsri.ParseAccessKey(key)
	if err != nil {
		return nil, err
	}
	return &dto.AccessKeyResponse{
		AccessKey:     key,
		IssueDate:     parts.IssueDate.Format("2006-01-02"),
		DocumentType:  parts.DocumentType,
		RUC:           parts.RUC,
		Environment:   parts.Environment,
		Establishment: parts.Establishment,
		EmissionPoint: parts.EmissionPoint,
		Sequential:    parts.Sequential,
		NumericCode:   parts.NumericCode,
		EmissionType:  parts.EmissionType,
		CheckDigit:    parts.CheckDigit,
	}, nil
}
