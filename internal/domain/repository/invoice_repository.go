package repository

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	// Create persiste cabecera y líneas (usar dentro de una transacción).
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve la factura con sus líneas, o nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// Update actualiza estado, secuencial, clave de acceso, XML firmado y datos del SRI.
	// Las líneas no cambian después de crear la factura.
	Update(ctx context.Context, invoice *entity.Invoice) error
}
