package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

// RIDEUseCase genera el PDF de una factura firmada.
type RIDEUseCase struct {
	issuerRepo  repository.IssuerRepository
	invoiceRepo repository.InvoiceRepository
	generator   RIDEGenerator
}

// NewRIDEUseCase construye el caso de uso.
func NewRIDEUseCase(issuerRepo repository.IssuerRepository, invoiceRepo repository.InvoiceRepository, generator RIDEGenerator) *RIDEUseCase {
	return &RIDEUseCase{issuerRepo: issuerRepo, invoiceRepo: invoiceRepo, generator: generator}
}

// Download devuelve el PDF y el nombre de archivo <claveAcceso>.pdf.
// Solo hay RIDE para facturas con clave de acceso (SIGNED en adelante, excepto CANCELLED).
func (uc *RIDEUseCase) Download(ctx context.Context, issuerID, invoiceID string) ([]byte, string, error) {
	inv, err := getOwnedInvoice(ctx, uc.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.AccessKey == "" || inv.Status == entity.InvoiceStatusCancelled {
		return nil, "", fmt.Errorf("%w: la factura está en estado %s y no tiene RIDE", domain.ErrConflict, inv.Status)
	}
	issuer, err := uc.issuerRepo.GetByID(ctx, inv.IssuerID)
	if err != nil {
		return nil, "", fmt.Errorf("obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, "", domain.ErrNotFound
	}

	pdf, err := uc.generator.GenerateRIDE(ctx, issuer, inv)
	if err != nil {
		return nil, "", fmt.Errorf("generar RIDE: %w", err)
	}
	return pdf, inv.AccessKey + ".pdf", nil
}
