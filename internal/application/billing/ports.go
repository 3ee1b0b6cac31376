package billing

import (
	"context"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción con los repos de facturación.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		sequenceRepo repository.SequenceRepository,
	) error) error
}

// CertificateSource entrega el contenedor PKCS#12 del emisor y su contraseña.
// Se consulta en cada firma; el material nunca se guarda entre llamadas.
type CertificateSource interface {
	Load(ctx context.Context) (p12 []byte, password string, err error)
}

// RIDEGenerator genera la representación impresa (PDF) de una factura firmada.
type RIDEGenerator interface {
	GenerateRIDE(ctx context.Context, issuer *entity.Issuer, invoice *entity.Invoice) ([]byte, error)
}
