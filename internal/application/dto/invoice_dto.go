package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices.
// El establecimiento y punto de emisión salen del emisor; el secuencial se asigna al emitir.
type CreateInvoiceRequest struct {
	IssueDate     string               `json:"issue_date" validate:"omitempty,datetime=2006-01-02"` // vacío = hoy
	Buyer         BuyerRequest         `json:"buyer"`
	PaymentMethod string               `json:"payment_method" validate:"omitempty,len=2,digits"`
	Items         []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// BuyerRequest datos del comprador.
type BuyerRequest struct {
	IdentificationType string `json:"identification_type" validate:"required,oneof=ruc cedula pasaporte consumidor_final"`
	Identification     string `json:"identification" validate:"required,max=20"`
	Name               string `json:"name" validate:"required,max=300"`
	Address            string `json:"address" validate:"max=300"`
	Email              string `json:"email" validate:"omitempty,email"`
}

// InvoiceItemRequest línea de factura.
type InvoiceItemRequest struct {
	Code        string          `json:"code" validate:"max=25"`
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Discount    decimal.Decimal `json:"discount" swaggertype:"string"`
	TaxRate     decimal.Decimal `json:"tax_rate" swaggertype:"string"` // IVA en %, ej. 15
}

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID                  string                `json:"id"`
	IssuerID            string                `json:"issuer_id"`
	Status              string                `json:"status"`
	Number              string                `json:"number,omitempty"` // 001-001-000000125
	IssueDate           string                `json:"issue_date"`
	AccessKey           string                `json:"access_key,omitempty"`
	Buyer               BuyerResponse         `json:"buyer"`
	PaymentMethod       string                `json:"payment_method"`
	Subtotal            decimal.Decimal       `json:"subtotal" swaggertype:"string"`
	DiscountTotal       decimal.Decimal       `json:"discount_total" swaggertype:"string"`
	TaxTotal            decimal.Decimal       `json:"tax_total" swaggertype:"string"`
	Total               decimal.Decimal       `json:"total" swaggertype:"string"`
	AuthorizationNumber string                `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time            `json:"authorized_at,omitempty"`
	SRIMessages         string                `json:"sri_messages,omitempty"`
	LastError           string                `json:"last_error,omitempty"`
	Items               []InvoiceItemResponse `json:"items"`
}

// BuyerResponse comprador en la respuesta.
type BuyerResponse struct {
	IdentificationType string `json:"identification_type"`
	Identification     string `json:"identification"`
	Name               string `json:"name"`
	Address            string `json:"address,omitempty"`
	Email              string `json:"email,omitempty"`
}

// InvoiceItemResponse línea de detalle en la respuesta.
type InvoiceItemResponse struct {
	Position    int             `json:"position"`
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Discount    decimal.Decimal `json:"discount" swaggertype:"string"`
	TaxRate     decimal.Decimal `json:"tax_rate" swaggertype:"string"`
	Subtotal    decimal.Decimal `json:"subtotal" swaggertype:"string"`
	TaxValue    decimal.Decimal `json:"tax_value" swaggertype:"string"`
}
