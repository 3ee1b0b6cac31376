package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// Modos de envío.
const (
	SendModeDev  = "dev"  // no llama al SRI; simula la autorización
	SendModeLive = "live" // llama a los web services del ambiente configurado
)

// Identificadores de mensaje del SRI que indican que el comprobante ya fue recibido antes.
var alreadyReceivedMessages = map[string]bool{
	"43": true, // CLAVE ACCESO REGISTRADA
	"70": true, // CLAVE DE ACCESO EN PROCESAMIENTO
}

var errAuthorizationPending = errors.New("sri: autorización pendiente")

// SRIConfig parámetros del orquestador.
type SRIConfig struct {
	SendMode              string
	Timeout               time.Duration // límite de SendAsync; 0 = 30 s
	AuthorizationAttempts int           // consultas de autorización por envío; 0 = 5
	AuthorizationInterval time.Duration // espera entre consultas; 0 = 3 s
}

func (c SRIConfig) withDefaults() SRIConfig {
	if c.SendMode == "" {
		c.SendMode = SendModeDev
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.AuthorizationAttempts <= 0 {
		c.AuthorizationAttempts = 5
	}
	if c.AuthorizationInterval <= 0 {
		c.AuthorizationInterval = 3 * time.Second
	}
	return c
}

// SRIOrchestrator orquesta el envío de una factura firmada a los web services del SRI:
//
//	Recepción (validarComprobante) → Autorización (autorizacionComprobante) → Update DB
//
// SendAsync corre en su propia goroutine con context.Background() + timeout, desacoplado
// del ciclo HTTP. En modo dev no se llama al SRI y la autorización se simula.
type SRIOrchestrator struct {
	invoiceRepo repository.InvoiceRepository
	gateway     infrasri.SRIGateway // nil en modo dev
	cfg         SRIConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewSRIOrchestrator construye el orquestador. gateway puede ser nil solo en modo dev.
func NewSRIOrchestrator(invoiceRepo repository.InvoiceRepository, gateway infrasri.SRIGateway, cfg SRIConfig, log *logger.Logger) *SRIOrchestrator {
	return &SRIOrchestrator{
		invoiceRepo: invoiceRepo,
		gateway:     gateway,
		cfg:         cfg.withDefaults(),
		log:         log.Child("component", "sri"),
		now:         time.Now,
	}
}

// SendAsync dispara el envío en una goroutine independiente.
func (o *SRIOrchestrator) SendAsync(invoiceID string) {
	go o.sendAsync(invoiceID)
}

func (o *SRIOrchestrator) sendAsync(invoiceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Timeout)
	defer cancel()

	// Re-fetch: la factura pudo cambiar desde que se disparó el envío.
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil || inv == nil {
		o.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("factura no encontrada")
		return
	}
	if inv.Status != entity.InvoiceStatusSigned {
		o.log.Warn().Str("invoice_id", invoiceID).Str("status", string(inv.Status)).Msg("estado inesperado, se omite el envío")
		return
	}
	_ = o.process(ctx, inv)
}

// Send envía la factura y espera el resultado. Solo facturas en SIGNED.
func (o *SRIOrchestrator) Send(ctx context.Context, issuerID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := getOwnedInvoice(ctx, o.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != entity.InvoiceStatusSigned {
		return nil, fmt.Errorf("%w: solo se envían facturas firmadas (estado actual %s)", domain.ErrConflict, inv.Status)
	}
	if err := o.process(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// Authorize vuelve a consultar la autorización de una factura recibida (SENT_SRI).
func (o *SRIOrchestrator) Authorize(ctx context.Context, issuerID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := getOwnedInvoice(ctx, o.invoiceRepo, issuerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != entity.InvoiceStatusSentSRI {
		return nil, fmt.Errorf("%w: la factura no está pendiente de autorización (estado %s)", domain.ErrConflict, inv.Status)
	}
	if err := o.ensureGateway(); err != nil {
		return nil, err
	}
	if err := o.authorize(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// process siempre termina persistiendo la factura: SENT_SRI, AUTHORIZED, REJECTED,
// o SIGNED con LastError si la recepción no respondió.
func (o *SRIOrchestrator) process(ctx context.Context, inv *entity.Invoice) error {
	log := o.log.With().Str("invoice_id", inv.ID).Str("access_key", inv.AccessKey).Logger()

	// markError deja la factura en su estado actual con el error registrado.
	markError := func(step string, cause error) error {
		inv.LastError = step + ": " + cause.Error()
		inv.UpdatedAt = o.now()
		if err := o.invoiceRepo.Update(context.WithoutCancel(ctx), inv); err != nil {
			log.Error().Err(err).Msg("no se pudo persistir last_error")
		}
		log.Error().Err(cause).Str("step", step).Msg("envío al SRI fallido")
		return cause
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 0. Modo desarrollo: simular recepción y autorización
	// ═══════════════════════════════════════════════════════════════════════════
	if o.cfg.SendMode == SendModeDev {
		now := o.now()
		if err := inv.TransitionTo(entity.InvoiceStatusSentSRI, now); err != nil {
			return err
		}
		if err := inv.TransitionTo(entity.InvoiceStatusAuthorized, now); err != nil {
			return err
		}
		inv.AuthorizationNumber = inv.AccessKey
		inv.AuthorizedAt = &now
		inv.SRIMessages = "[DEV] autorización simulada, no se envió al SRI"
		inv.LastError = ""
		if err := o.invoiceRepo.Update(ctx, inv); err != nil {
			return fmt.Errorf("persistir autorización simulada: %w", err)
		}
		log.Info().Msg("[DEV] autorización simulada")
		return nil
	}
	if err := o.ensureGateway(); err != nil {
		return markError("config", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Recepción
	// ═══════════════════════════════════════════════════════════════════════════
	reception, err := o.gateway.SendReceipt(ctx, []byte(inv.XMLSigned))
	if err != nil {
		return markError("recepcion", err)
	}
	inv.SRIMessages = infrasri.JoinMessages(reception.Messages)
	inv.LastError = ""
	if err := inv.TransitionTo(entity.InvoiceStatusSentSRI, o.now()); err != nil {
		return err
	}

	if !reception.Received() && !alreadyReceived(reception.Messages) {
		if err := inv.TransitionTo(entity.InvoiceStatusRejected, o.now()); err != nil {
			return err
		}
		if err := o.invoiceRepo.Update(ctx, inv); err != nil {
			return fmt.Errorf("persistir rechazo: %w", err)
		}
		log.Warn().Str("messages", inv.SRIMessages).Msg("comprobante DEVUELTO por el SRI")
		return nil
	}
	if err := o.invoiceRepo.Update(ctx, inv); err != nil {
		return fmt.Errorf("persistir recepción: %w", err)
	}
	log.Info().Str("status", reception.Status).Msg("comprobante recibido por el SRI")

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Autorización
	// ═══════════════════════════════════════════════════════════════════════════
	return o.authorize(ctx, inv)
}

// authorize consulta la autorización con reintentos mientras el SRI responda EN PROCESO.
// Si se agotan los intentos la factura queda en SENT_SRI para consultarla después.
func (o *SRIOrchestrator) authorize(ctx context.Context, inv *entity.Invoice) error {
	log := o.log.With().Str("invoice_id", inv.ID).Str("access_key", inv.AccessKey).Logger()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cfg.AuthorizationInterval), uint64(o.cfg.AuthorizationAttempts-1)),
		ctx,
	)
	result, err := backoff.RetryWithData(func() (*infrasri.AuthorizationResult, error) {
		res, err := o.gateway.Authorize(ctx, inv.AccessKey)
		if err != nil {
			// Solo EN PROCESO se reintenta; un fallo de transporte o SOAP corta el ciclo.
			return nil, backoff.Permanent(err)
		}
		if res.Pending() {
			return nil, errAuthorizationPending
		}
		return res, nil
	}, policy)

	switch {
	case errors.Is(err, errAuthorizationPending):
		inv.LastError = ""
		inv.UpdatedAt = o.now()
		if err := o.invoiceRepo.Update(ctx, inv); err != nil {
			return fmt.Errorf("persistir autorización pendiente: %w", err)
		}
		log.Info().Msg("autorización pendiente, la factura queda en SENT_SRI")
		return nil
	case err != nil:
		inv.LastError = "autorizacion: " + err.Error()
		inv.UpdatedAt = o.now()
		if uerr := o.invoiceRepo.Update(context.WithoutCancel(ctx), inv); uerr != nil {
			log.Error().Err(uerr).Msg("no se pudo persistir last_error")
		}
		log.Error().Err(err).Str("step", "autorizacion").Msg("consulta de autorización fallida")
		return err
	}

	inv.SRIMessages = infrasri.JoinMessages(result.Messages)
	inv.LastError = ""
	if result.Status == infrasri.AuthorizationAuthorized {
		if err := inv.TransitionTo(entity.InvoiceStatusAuthorized, o.now()); err != nil {
			return err
		}
		authorizedAt := result.AuthorizedAt
		if authorizedAt.IsZero() {
			authorizedAt = o.now()
		}
		inv.AuthorizationNumber = result.Number
		inv.AuthorizedAt = &authorizedAt
	} else {
		if err := inv.TransitionTo(entity.InvoiceStatusRejected, o.now()); err != nil {
			return err
		}
	}
	if err := o.invoiceRepo.Update(ctx, inv); err != nil {
		return fmt.Errorf("persistir autorización: %w", err)
	}
	log.Info().Str("status", string(inv.Status)).Str("authorization_number", inv.AuthorizationNumber).Msg("respuesta de autorización")
	return nil
}

func (o *SRIOrchestrator) ensureGateway() error {
	if o.gateway == nil {
		return fmt.Errorf("cliente SRI no configurado para el modo %q", o.cfg.SendMode)
	}
	return nil
}

func alreadyReceived(msgs []infrasri.Message) bool {
	for _, m := range msgs {
		if alreadyReceivedMessages[strings.TrimSpace(m.Identifier)] {
			return true
		}
	}
	return false
}
