package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
)

func rideFixture() (*entity.Issuer, *entity.Invoice) {
	issuer := &entity.Issuer{
		ID:                 "iss-1",
		RUC:                "1790012345001",
		LegalName:          "Comercial Andina S.A.",
		TradeName:          "Andina",
		HeadOfficeAddress:  "Av. Amazonas N34-12, Quito",
		Establishment:      "001",
		EmissionPoint:      "001",
		Environment:        "1",
		RequiredAccounting: true,
	}
	authorizedAt := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	inv := &entity.Invoice{
		ID:            "inv-1",
		IssuerID:      issuer.ID,
		Status:        entity.InvoiceStatusAuthorized,
		IssueDate:     time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Establishment: "001",
		EmissionPoint: "001",
		Sequential:    123,
		AccessKey:     "1501202401179001234500110010010000001231234567814",
		Buyer: entity.Buyer{
			IdentificationType: "cedula",
			Identification:     "1712345678",
			Name:               "María Pérez",
		},
		PaymentMethod: "01",
		Items: []entity.InvoiceItem{
			{Position: 1, Code: "A1", Description: "Arroz 1kg", Quantity: decimal.NewFromInt(2),
				UnitPrice: decimal.RequireFromString("1.25"), TaxRate: decimal.Zero, Subtotal: decimal.RequireFromString("2.50")},
			{Position: 2, Code: "S1", Description: "Servicio técnico", Quantity: decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(100), Discount: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(12),
				Subtotal: decimal.NewFromInt(90), TaxValue: decimal.RequireFromString("10.80")},
		},
		Subtotal:            decimal.RequireFromString("92.50"),
		DiscountTotal:       decimal.NewFromInt(10),
		TaxTotal:            decimal.RequireFromString("10.80"),
		Total:               decimal.RequireFromString("103.30"),
		AuthorizationNumber: "1501202401179001234500110010010000001231234567814",
		AuthorizedAt:        &authorizedAt,
	}
	return issuer, inv
}

func TestGenerateRIDE_DevuelvePDF(t *testing.T) {
	issuer, inv := rideFixture()

	out, err := NewRIDEGenerator().GenerateRIDE(context.Background(), issuer, inv)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "el RIDE debe ser un PDF")
}

func TestGenerateRIDE_SinClaveDeAcceso(t *testing.T) {
	issuer, inv := rideFixture()
	inv.AccessKey = ""

	out, err := NewRIDEGenerator().GenerateRIDE(context.Background(), issuer, inv)
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":        "0.00",
		"2.5":      "2.50",
		"1234.5":   "1,234.50",
		"1000000":  "1,000,000.00",
		"-4321.06": "-4,321.06",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestSubtotalsByRate_AgrupaEnOrdenDeAparicion(t *testing.T) {
	_, inv := rideFixture()
	inv.Items = append(inv.Items, entity.InvoiceItem{TaxRate: decimal.Zero, Subtotal: decimal.NewFromInt(5)})

	got := subtotalsByRate(inv.Items)
	require.Len(t, got, 2)
	assert.True(t, got[0].rate.IsZero())
	assert.Equal(t, "7.50", got[0].amount.StringFixed(2))
	assert.Equal(t, "12", got[1].rate.String())
}
