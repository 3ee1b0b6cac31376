package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/internal/domain"
)

// InvoiceStatus estado del ciclo de vida de una factura electrónica SRI.
type InvoiceStatus string

const (
	InvoiceStatusDraft       InvoiceStatus = "DRAFT"        // Guardada, sin secuencial
	InvoiceStatusPendingSign InvoiceStatus = "PENDING_SIGN" // Secuencial asignado, pendiente de firma (o firma fallida)
	InvoiceStatusSigned      InvoiceStatus = "SIGNED"       // XML firmado, pendiente de envío
	InvoiceStatusSentSRI     InvoiceStatus = "SENT_SRI"     // Recibida por el SRI, autorización pendiente
	InvoiceStatusAuthorized  InvoiceStatus = "AUTHORIZED"
	InvoiceStatusRejected    InvoiceStatus = "REJECTED" // DEVUELTA o NO AUTORIZADO
	InvoiceStatusCancelled   InvoiceStatus = "CANCELLED"
	InvoiceStatusVoided      InvoiceStatus = "VOIDED" // Anulada en el portal del SRI
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:       {InvoiceStatusPendingSign, InvoiceStatusCancelled},
	InvoiceStatusPendingSign: {InvoiceStatusSigned, InvoiceStatusCancelled},
	InvoiceStatusSigned:      {InvoiceStatusSentSRI, InvoiceStatusCancelled},
	InvoiceStatusSentSRI:     {InvoiceStatusAuthorized, InvoiceStatusRejected},
	InvoiceStatusAuthorized:  {},
	InvoiceStatusRejected:    {},
	InvoiceStatusCancelled:   {},
	InvoiceStatusVoided:      {},
}

// CanTransition indica si el ciclo de vida permite pasar de from a to.
func CanTransition(from, to InvoiceStatus) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid indica si s es un estado conocido.
func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// IsTerminal indica si desde s no hay más transiciones.
func (s InvoiceStatus) IsTerminal() bool {
	return s.Valid() && len(invoiceTransitions[s]) == 0
}

// Buyer datos del comprador copiados en la factura al crearla.
type Buyer struct {
	IdentificationType string // ruc | cedula | pasaporte | consumidor_final
	Identification     string
	Name               string
	Address            string
	Email              string
}

// InvoiceItem representa una línea de detalle de una factura.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Position    int // orden de la línea en el comprobante (1..n)
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal // tarifa IVA en %, ej. 15
	Subtotal    decimal.Decimal // precioTotalSinImpuesto
	TaxValue    decimal.Decimal
}

// Invoice representa la cabecera de una factura SRI.
type Invoice struct {
	ID            string
	IssuerID      string
	Status        InvoiceStatus
	IssueDate     time.Time
	Establishment string
	EmissionPoint string
	Sequential    int64 // 0 = aún sin asignar
	AccessKey     string
	Buyer         Buyer
	PaymentMethod string
	Items         []InvoiceItem

	Subtotal      decimal.Decimal // totalSinImpuestos
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal // importeTotal

	XMLSigned           string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	SRIMessages         string // mensajes del SRI en la última recepción/autorización
	LastError           string // último error de firma o envío

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionTo cambia el estado si el ciclo de vida lo permite.
// Devuelve domain.ErrConflict si la transición no es válida.
func (inv *Invoice) TransitionTo(to InvoiceStatus, now time.Time) error {
	if !CanTransition(inv.Status, to) {
		return fmt.Errorf("%w: transición %s → %s no permitida", domain.ErrConflict, inv.Status, to)
	}
	inv.Status = to
	inv.UpdatedAt = now
	return nil
}

// Number número visible de la factura: 001-001-000000125.
// Vacío mientras no tenga secuencial.
func (inv *Invoice) Number() string {
	if inv.Sequential <= 0 {
		return ""
	}
	return fmt.Sprintf("%s-%s-%09d", inv.Establishment, inv.EmissionPoint, inv.Sequential)
}
