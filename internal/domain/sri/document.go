package sri

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// totalsTolerance diferencia máxima aceptada entre totales declarados y calculados.
var totalsTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Issuer datos del emisor (infoTributaria).
type Issuer struct {
	RUC                string `json:"ruc" validate:"required,len=13,digits"`
	LegalName          string `json:"razonSocial" validate:"required,max=300"`
	TradeName          string `json:"nombreComercial" validate:"max=300"`
	HeadOfficeAddress  string `json:"dirMatriz" validate:"max=300"`
	BranchAddress      string `json:"dirEstablecimiento" validate:"max=300"`
	RequiredAccounting bool   `json:"obligadoContabilidad"`
	SpecialTaxpayer    string `json:"contribuyenteEspecial" validate:"omitempty,min=3,max=13,digits"`
}

// Buyer datos del comprador (infoFactura).
type Buyer struct {
	IdentificationType sri.IdentificationType `json:"identificationType" validate:"required,oneof=ruc cedula pasaporte consumidor_final"`
	Identification     string                 `json:"identification" validate:"required,max=20"`
	Name               string                 `json:"name" validate:"required,max=300"`
	Address            string                 `json:"address" validate:"max=300"`
	Email              string                 `json:"email" validate:"omitempty,email"`
}

// Line ítem de la factura tal como llega del origen.
type Line struct {
	Code        string          `json:"productCode" validate:"max=25"`
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"ivaRate"`
}

// DeclaredTotals totales calculados por el sistema de origen. Opcionales: si vienen,
// deben coincidir (±0.01) con los recalculados a partir de las líneas.
type DeclaredTotals struct {
	SubtotalBeforeTax decimal.Decimal            `json:"subtotalSinImpuestos"`
	TaxByRate         map[string]decimal.Decimal `json:"ivaByRate"`
	Total             decimal.Decimal            `json:"total"`
}

// InvoiceDocument todo lo necesario para serializar una factura. Se arma justo antes
// de serializar; el artefacto durable es el XML firmado.
type InvoiceDocument struct {
	Environment   string          `json:"environment" validate:"required,oneof=1 2"`
	Issuer        Issuer          `json:"issuer"`
	IssueDate     time.Time       `json:"issueDate"`
	Establishment string          `json:"estab" validate:"required,len=3,digits"`
	EmissionPoint string          `json:"ptoEmi" validate:"required,len=3,digits"`
	Sequential    string          `json:"secuencial" validate:"required,max=9,digits"`
	Buyer         Buyer           `json:"customer"`
	Lines         []Line          `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,len=2,digits"`
	Totals        *DeclaredTotals `json:"totals,omitempty"`
}

// AccessKeyInput datos para la clave de acceso de este documento.
func (d *InvoiceDocument) AccessKeyInput(numericCode string) AccessKeyInput {
	return AccessKeyInput{
		IssueDate:     d.IssueDate,
		DocumentType:  sri.DocTypeFactura,
		RUC:           d.Issuer.RUC,
		Environment:   d.Environment,
		Establishment: d.Establishment,
		EmissionPoint: d.EmissionPoint,
		Sequential:    d.Sequential,
		NumericCode:   numericCode,
		EmissionType:  sri.EmissionTypeNormal,
	}
}

// ComputedLine línea con subtotal e impuesto ya calculados y redondeados a 2 decimales.
type ComputedLine struct {
	Line
	Discount       decimal.Decimal // descuento efectivo (nunca mayor al bruto)
	Subtotal       decimal.Decimal // precioTotalSinImpuesto
	TaxValue       decimal.Decimal
	PercentageCode string
}

// TaxBucket un totalImpuesto: una tarifa con su base y valor acumulados.
type TaxBucket struct {
	Rate           decimal.Decimal
	PercentageCode string
	Base           decimal.Decimal
	Value          decimal.Decimal
}

// Computation resultado del cálculo de totales de la factura.
type Computation struct {
	Lines             []ComputedLine
	Buckets           []TaxBucket // ordenados por tarifa ascendente
	SubtotalBeforeTax decimal.Decimal
	DiscountTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Tip               decimal.Decimal
	Total             decimal.Decimal
}

// Compute calcula líneas, totales por tarifa y total general.
//
//	subtotal = max(cantidad*precio - descuento, 0)
//	impuesto = subtotal * tarifa / 100
//
// Los totales son la suma exacta de los valores de línea ya redondeados, de modo que
// sum(precioTotalSinImpuesto) == totalSinImpuestos y totalSinImpuestos + sum(valor) == importeTotal.
func (d *InvoiceDocument) Compute() (*Computation, error) {
	if len(d.Lines) == 0 {
		return nil, sri.NewSerializationError("la factura no tiene líneas")
	}
	lines := lo.Map(d.Lines, func(l Line, _ int) ComputedLine {
		gross := l.Quantity.Mul(l.UnitPrice)
		discount := decimal.Min(l.Discount, gross)
		subtotal := decimal.Max(gross.Sub(l.Discount), decimal.Zero).Round(2)
		return ComputedLine{
			Line:           l,
			Discount:       decimal.Max(discount, decimal.Zero).Round(2),
			Subtotal:       subtotal,
			TaxValue:       subtotal.Mul(l.TaxRate).Div(hundred).Round(2),
			PercentageCode: sri.PercentageCode(l.TaxRate),
		}
	})
	for i, l := range lines {
		if l.Subtotal.IsNegative() || l.TaxValue.IsNegative() {
			return nil, sri.NewSerializationError("línea %d: valores calculados negativos", i+1)
		}
	}

	groups := lo.GroupBy(lines, func(l ComputedLine) string { return l.TaxRate.String() })
	buckets := make([]TaxBucket, 0, len(groups))
	for _, group := range groups {
		buckets = append(buckets, TaxBucket{
			Rate:           group[0].TaxRate,
			PercentageCode: group[0].PercentageCode,
			Base:           sumBy(group, func(l ComputedLine) decimal.Decimal { return l.Subtotal }),
			Value:          sumBy(group, func(l ComputedLine) decimal.Decimal { return l.TaxValue }),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Rate.LessThan(buckets[j].Rate) })

	c := &Computation{
		Lines:             lines,
		Buckets:           buckets,
		SubtotalBeforeTax: sumBy(lines, func(l ComputedLine) decimal.Decimal { return l.Subtotal }),
		DiscountTotal:     sumBy(lines, func(l ComputedLine) decimal.Decimal { return l.Discount }),
		TaxTotal:          sumBy(buckets, func(b TaxBucket) decimal.Decimal { return b.Value }),
		Tip:               decimal.Zero,
	}
	c.Total = c.SubtotalBeforeTax.Add(c.TaxTotal).Add(c.Tip)

	if d.Totals != nil {
		if err := c.checkDeclared(d.Totals); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// checkDeclared compara los totales del origen con los recalculados.
func (c *Computation) checkDeclared(t *DeclaredTotals) error {
	if !withinTolerance(t.SubtotalBeforeTax, c.SubtotalBeforeTax) {
		return sri.NewSerializationError("subtotalSinImpuestos declarado %s no coincide con el calculado %s",
			t.SubtotalBeforeTax.StringFixed(2), c.SubtotalBeforeTax.StringFixed(2))
	}
	if !withinTolerance(t.Total, c.Total) {
		return sri.NewSerializationError("total declarado %s no coincide con el calculado %s",
			t.Total.StringFixed(2), c.Total.StringFixed(2))
	}
	computed := lo.SliceToMap(c.Buckets, func(b TaxBucket) (string, decimal.Decimal) {
		return b.Rate.String(), b.Value
	})
	for rateKey, declared := range t.TaxByRate {
		rate, err := decimal.NewFromString(rateKey)
		if err != nil {
			return sri.NewSerializationError("tarifa declarada %q no es numérica", rateKey)
		}
		if !withinTolerance(declared, computed[rate.String()]) {
			return sri.NewSerializationError("IVA declarado para tarifa %s%% (%s) no coincide con el calculado (%s)",
				rate.String(), declared.StringFixed(2), computed[rate.String()].StringFixed(2))
		}
	}
	return nil
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(totalsTolerance)
}

func sumBy[T any](items []T, f func(T) decimal.Decimal) decimal.Decimal {
	return lo.Reduce(items, func(acc decimal.Decimal, item T, _ int) decimal.Decimal {
		return acc.Add(f(item))
	}, decimal.Zero)
}
