package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

var _ repository.IssuerRepository = (*IssuerRepo)(nil)

// IssuerRepo implementación de IssuerRepository (usable con pool o tx).
type IssuerRepo struct {
	q Querier
}

// NewIssuerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIssuerRepository(q Querier) *IssuerRepo {
	return &IssuerRepo{q: q}
}

// Create persiste un nuevo emisor. Un RUC ya registrado devuelve domain.ErrDuplicate.
func (r *IssuerRepo) Create(ctx context.Context, issuer *entity.Issuer) error {
	if issuer.ID == "" {
		issuer.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO issuers (id, ruc, legal_name, trade_name, head_office_address, branch_address,
		                     establishment, emission_point, environment, required_accounting,
		                     special_taxpayer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, q,
		issuer.ID, issuer.RUC, issuer.LegalName, nullIfEmpty(issuer.TradeName),
		issuer.HeadOfficeAddress, nullIfEmpty(issuer.BranchAddress),
		issuer.Establishment, issuer.EmissionPoint, issuer.Environment, issuer.RequiredAccounting,
		nullIfEmpty(issuer.SpecialTaxpayer), issuer.CreatedAt, issuer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el RUC %s ya está registrado", domain.ErrDuplicate, issuer.RUC)
		}
		return fmt.Errorf("insert issuer: %w", err)
	}
	return nil
}

// GetByID obtiene un emisor por ID.
func (r *IssuerRepo) GetByID(ctx context.Context, id string) (*entity.Issuer, error) {
	const q = `
		SELECT id, ruc, legal_name, trade_name, head_office_address, branch_address,
		       establishment, emission_point, environment, required_accounting,
		       special_taxpayer, created_at, updated_at
		FROM issuers WHERE id = $1`
	var is entity.Issuer
	var tradeName, branch, special *string
	err := r.q.QueryRow(ctx, q, id).Scan(
		&is.ID, &is.RUC, &is.LegalName, &tradeName, &is.HeadOfficeAddress, &branch,
		&is.Establishment, &is.EmissionPoint, &is.Environment, &is.RequiredAccounting,
		&special, &is.CreatedAt, &is.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer: %w", err)
	}
	is.TradeName = derefStr(tradeName)
	is.BranchAddress = derefStr(branch)
	is.SpecialTaxpayer = derefStr(special)
	return &is, nil
}
