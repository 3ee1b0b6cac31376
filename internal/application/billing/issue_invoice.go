package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// AsyncSender dispara el envío al SRI fuera del ciclo de la petición HTTP.
type AsyncSender interface {
	SendAsync(invoiceID string)
}

// IssueInvoiceUseCase emite una factura: asigna secuencial, genera el XML y lo firma.
type IssueInvoiceUseCase struct {
	txRunner    BillingTxRunner
	issuerRepo  repository.IssuerRepository
	invoiceRepo repository.InvoiceRepository
	pipeline    *Pipeline
	certs       CertificateSource
	sender      AsyncSender // nil = el envío se pide aparte (POST /send)
	log         *logger.Logger
	now         func() time.Time
}

// NewIssueInvoiceUseCase construye el caso de uso. sender puede ser nil.
func NewIssueInvoiceUseCase(
	txRunner BillingTxRunner,
	issuerRepo repository.IssuerRepository,
	invoiceRepo repository.InvoiceRepository,
	pipeline *Pipeline,
	certs CertificateSource,
	sender AsyncSender,
	log *logger.Logger,
) *IssueInvoiceUseCase {
	return &IssueInvoiceUseCase{
		txRunner:    txRunner,
		issuerRepo:  issuerRepo,
		invoiceRepo: invoiceRepo,
		pipeline:    pipeline,
		certs:       certs,
		sender:      sender,
		log:         log.Child("component", "issue"),
		now:         time.Now,
	}
}

// Issue lleva la factura de DRAFT (o PENDING_SIGN, si una firma anterior falló) a SIGNED.
// El secuencial se asigna una sola vez; los reintentos reutilizan el mismo número.
// Si la firma falla la factura queda en PENDING_SIGN con LastError y se devuelve el error tipado.
func (uc *IssueInvoiceUseCase) Issue(ctx context.Context, issuerID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := getOwnedInvoice(ctx, uc.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != entity.InvoiceStatusDraft && inv.Status != entity.InvoiceStatusPendingSign {
		return nil, fmt.Errorf("%w: la factura está en estado %s", domain.ErrConflict, inv.Status)
	}
	issuer, err := uc.issuerRepo.GetByID(ctx, inv.IssuerID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, domain.ErrNotFound
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Secuencial (transaccional, una sola vez por factura)
	// ═══════════════════════════════════════════════════════════════════════════
	if inv.Status == entity.InvoiceStatusDraft {
		if err := uc.reserveSequential(ctx, inv); err != nil {
			return nil, err
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Certificado del emisor (leído en cada firma)
	// ═══════════════════════════════════════════════════════════════════════════
	p12, password, err := uc.certs.Load(ctx)
	if err != nil {
		return nil, uc.fail(ctx, inv, "certificado", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Clave de acceso → XML → firma XAdES-BES
	// ═══════════════════════════════════════════════════════════════════════════
	res, err := uc.pipeline.Run(ctx, buildDocument(issuer, inv), p12, password)
	if err != nil {
		return nil, uc.fail(ctx, inv, "firma", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Persistir SIGNED
	// ═══════════════════════════════════════════════════════════════════════════
	applyTotals(inv, res.Totals)
	inv.AccessKey = res.AccessKey
	inv.XMLSigned = string(res.SignedXML)
	inv.LastError = ""
	if err := inv.TransitionTo(entity.InvoiceStatusSigned, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("persistir factura firmada: %w", err)
	}
	uc.log.Info().
		Str("invoice_id", inv.ID).
		Str("number", inv.Number()).
		Str("access_key", inv.AccessKey).
		Msg("factura firmada")

	if uc.sender != nil {
		uc.sender.SendAsync(inv.ID)
	}
	return toInvoiceResponse(inv), nil
}

// reserveSequential asigna el secuencial y pasa la factura a PENDING_SIGN en una sola transacción.
func (uc *IssueInvoiceUseCase) reserveSequential(ctx context.Context, inv *entity.Invoice) error {
	return uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, sequenceRepo repository.SequenceRepository) error {
		next, err := sequenceRepo.Next(ctx, inv.IssuerID, inv.Establishment, inv.EmissionPoint)
		if err != nil {
			return err
		}
		inv.Sequential = next
		if err := inv.TransitionTo(entity.InvoiceStatusPendingSign, uc.now()); err != nil {
			return err
		}
		return invoiceRepo.Update(ctx, inv)
	})
}

// fail registra el error en la factura (que sigue en PENDING_SIGN) y lo devuelve sin envolver.
func (uc *IssueInvoiceUseCase) fail(ctx context.Context, inv *entity.Invoice, step string, cause error) error {
	inv.LastError = step + ": " + cause.Error()
	inv.UpdatedAt = uc.now()
	if err := uc.invoiceRepo.Update(context.WithoutCancel(ctx), inv); err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo persistir last_error")
	}
	uc.log.Warn().
		Err(cause).
		Str("invoice_id", inv.ID).
		Str("step", step).
		Msg("emisión fallida")
	return cause
}
