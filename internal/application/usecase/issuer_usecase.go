package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/pkg/validation"
)

// IssuerUseCase aplica reglas de negocio para emisores.
type IssuerUseCase struct {
	repo repository.IssuerRepository
	now  func() time.Time
}

// NewIssuerUseCase construye el caso de uso con el puerto de persistencia.
func NewIssuerUseCase(repo repository.IssuerRepository) *IssuerUseCase {
	return &IssuerUseCase{repo: repo, now: time.Now}
}

// Create registra un emisor. Devuelve domain.ErrDuplicate si el RUC ya está registrado.
func (uc *IssuerUseCase) Create(ctx context.Context, in dto.CreateIssuerRequest) (*dto.IssuerResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := uc.now()
	issuer := &entity.Issuer{
		ID:                 uuid.New().String(),
		RUC:                in.RUC,
		LegalName:          in.LegalName,
		TradeName:          in.TradeName,
		HeadOfficeAddress:  in.HeadOfficeAddress,
		BranchAddress:      in.BranchAddress,
		Establishment:      in.Establishment,
		EmissionPoint:      in.EmissionPoint,
		Environment:        in.Environment,
		RequiredAccounting: in.RequiredAccounting,
		SpecialTaxpayer:    in.SpecialTaxpayer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.repo.Create(ctx, issuer); err != nil {
		return nil, err
	}
	return entityToIssuerResponse(issuer), nil
}

// GetByID obtiene un emisor por ID. domain.ErrNotFound si no existe.
func (uc *IssuerUseCase) GetByID(ctx context.Context, id string) (*dto.IssuerResponse, error) {
	issuer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issuer == nil {
		return nil, domain.ErrNotFound
	}
	return entityToIssuerResponse(issuer), nil
}

func entityToIssuerResponse(i *entity.Issuer) *dto.IssuerResponse {
	return &dto.IssuerResponse{
		ID:                 i.ID,
		RUC:                i.RUC,
		LegalName:          i.LegalName,
		TradeName:          i.TradeName,
		HeadOfficeAddress:  i.HeadOfficeAddress,
		BranchAddress:      i.BranchAddress,
		Establishment:      i.Establishment,
		EmissionPoint:      i.EmissionPoint,
		Environment:        i.Environment,
		RequiredAccounting: i.RequiredAccounting,
		SpecialTaxpayer:    i.SpecialTaxpayer,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}
