package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
	"github.com/jhoicas/sri-facturacion/pkg/validation"
)

// draftSequential ocupa el lugar del secuencial al validar un borrador; el real se asigna al emitir.
const draftSequential = "1"

// InvoiceUseCase crea, consulta y cancela facturas.
type InvoiceUseCase struct {
	txRunner    BillingTxRunner
	issuerRepo  repository.IssuerRepository
	invoiceRepo repository.InvoiceRepository
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(txRunner BillingTxRunner, issuerRepo repository.IssuerRepository, invoiceRepo repository.InvoiceRepository) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		issuerRepo:  issuerRepo,
		invoiceRepo: invoiceRepo,
		now:         time.Now,
	}
}

// CreateDraft valida la factura con las mismas reglas del comprobante, calcula totales y la guarda en DRAFT.
func (uc *InvoiceUseCase) CreateDraft(ctx context.Context, issuerID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	issuer, err := uc.issuerRepo.GetByID(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, domain.ErrNotFound
	}

	now := uc.now()
	issueDate := now
	if in.IssueDate != "" {
		if issueDate, err = time.ParseInLocation("2006-01-02", in.IssueDate, now.Location()); err != nil {
			return nil, sri.NewValidationError("issue_date", "fecha inválida")
		}
	}
	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = sri.DefaultPaymentMethod
	}

	inv := &entity.Invoice{
		ID:            uuid.New().String(),
		IssuerID:      issuer.ID,
		Status:        entity.InvoiceStatusDraft,
		IssueDate:     issueDate,
		Establishment: issuer.Establishment,
		EmissionPoint: issuer.EmissionPoint,
		Buyer: entity.Buyer{
			IdentificationType: in.Buyer.IdentificationType,
			Identification:     in.Buyer.Identification,
			Name:               in.Buyer.Name,
			Address:            in.Buyer.Address,
			Email:              in.Buyer.Email,
		},
		PaymentMethod: paymentMethod,
		Items: lo.Map(in.Items, func(it dto.InvoiceItemRequest, i int) entity.InvoiceItem {
			return entity.InvoiceItem{
				Position:    i + 1,
				Code:        it.Code,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Discount:    it.Discount,
				TaxRate:     it.TaxRate,
			}
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}

	doc := buildDocument(issuer, inv)
	doc.Sequential = draftSequential
	if err := domainsri.ValidateDocument(doc); err != nil {
		return nil, err
	}
	totals, err := doc.Compute()
	if err != nil {
		return nil, err
	}
	applyTotals(inv, totals)

	err = uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.SequenceRepository) error {
		return invoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// Get devuelve la factura si pertenece al emisor.
func (uc *InvoiceUseCase) Get(ctx context.Context, issuerID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := getOwnedInvoice(ctx, uc.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// Cancel pasa la factura a CANCELLED. Solo se permite antes de enviarla al SRI.
func (uc *InvoiceUseCase) Cancel(ctx context.Context, issuerID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := getOwnedInvoice(ctx, uc.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.TransitionTo(entity.InvoiceStatusCancelled, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// SignedXML devuelve el XML firmado y el nombre de archivo <claveAcceso>.xml.
func (uc *InvoiceUseCase) SignedXML(ctx context.Context, issuerID, invoiceID string) ([]byte, string, error) {
	inv, err := getOwnedInvoice(ctx, uc.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.XMLSigned == "" {
		return nil, "", fmt.Errorf("%w: la factura está en estado %s y aún no tiene XML firmado",
			domain.ErrConflict, inv.Status)
	}
	return []byte(inv.XMLSigned), inv.AccessKey + ".xml", nil
}

// getOwnedInvoice carga la factura y verifica que pertenezca al emisor del token.
func getOwnedInvoice(ctx context.Context, repo repository.InvoiceRepository, issuerID, invoiceID string) (*entity.Invoice, error) {
	if invoiceID == "" {
		return nil, domain.ErrInvalidInput
	}
	inv, err := repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.IssuerID != issuerID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}
