package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// IssuerRepository define el puerto de persistencia para emisores.
type IssuerRepository interface {
	Create(ctx context.Context, issuer *entity.Issuer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Issuer, error)
}
