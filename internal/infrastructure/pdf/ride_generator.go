// Package pdf genera el RIDE (Representación Impresa del Documento Electrónico)
// de una factura del SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social, dirección   │  RUC + FACTURA No.       │
//	│  contabilidad / contrib. especial  │  Autorización + fecha    │
//	│                                    │  Ambiente / Emisión      │
//	│                                    │  CLAVE DE ACCESO (barra) │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Razón social + identificación + fecha emisión    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cód | Cant | Descripción | P.Unit | Desc | Total     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FORMA DE PAGO          │  SUBTOTALES / IVA / VALOR TOTAL    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var paymentMethodNames = map[string]string{
	sri.PaymentSinSistemaFinanciero:   "SIN UTILIZACIÓN DEL SISTEMA FINANCIERO",
	sri.PaymentCompensacionDeudas:     "COMPENSACIÓN DE DEUDAS",
	sri.PaymentTarjetaDebito:          "TARJETA DE DÉBITO",
	sri.PaymentDineroElectronico:      "DINERO ELECTRÓNICO",
	sri.PaymentTarjetaPrepago:         "TARJETA PREPAGO",
	sri.PaymentTarjetaCredito:         "TARJETA DE CRÉDITO",
	sri.PaymentOtrosSistemaFinanciero: "OTROS CON UTILIZACIÓN DEL SISTEMA FINANCIERO",
	sri.PaymentEndosoTitulos:          "ENDOSO DE TÍTULOS",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// RIDEGenerator implementa billing.RIDEGenerator usando Maroto v2.
type RIDEGenerator struct{}

// NewRIDEGenerator construye el generador.
func NewRIDEGenerator() *RIDEGenerator { return &RIDEGenerator{} }

// GenerateRIDE genera el PDF y devuelve sus bytes. La factura debe tener clave de acceso.
func (g *RIDEGenerator) GenerateRIDE(ctx context.Context, issuer *entity.Issuer, invoice *entity.Invoice) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if invoice.AccessKey == "" {
		return nil, fmt.Errorf("pdf: la factura %s no tiene clave de acceso", invoice.ID)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("RIDE Factura "+invoice.Number(), true).
		WithAuthor(issuer.LegalName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRows(issuer, invoice)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRow(invoice))
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(invoice.Items)...)

	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRows: emisor (izq) y recuadro tributario con la clave de acceso (der).
func headerRows(issuer *entity.Issuer, invoice *entity.Invoice) []core.Row {
	authNumber := "PENDIENTE"
	authDate := "-"
	if invoice.AuthorizationNumber != "" {
		authNumber = invoice.AuthorizationNumber
	}
	if invoice.AuthorizedAt != nil {
		authDate = invoice.AuthorizedAt.Format("02/01/2006 15:04:05")
	}
	accounting := "NO"
	if issuer.RequiredAccounting {
		accounting = "SI"
	}

	small := props.Text{Size: 7, Color: colorGray}
	at := func(p props.Text, top float64) props.Text {
		p.Top = top
		return p
	}

	issuerCol := col.New(6).Add(
		text.New(issuer.LegalName, props.Text{
			Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 2,
		}),
		text.New(issuer.TradeName, at(props.Text{Size: 9}, 10)),
		text.New("Dir. Matriz: "+issuer.HeadOfficeAddress, at(small, 18)),
		text.New("Dir. Sucursal: "+nonEmpty(issuer.BranchAddress, issuer.HeadOfficeAddress), at(small, 23)),
		text.New("Obligado a llevar contabilidad: "+accounting, at(small, 28)),
	)
	if issuer.SpecialTaxpayer != "" {
		issuerCol.Add(text.New("Contribuyente especial Nro.: "+issuer.SpecialTaxpayer, at(small, 33)))
	}

	return []core.Row{
		row.New(44).Add(
			issuerCol,
			col.New(6).Add(
				text.New("R.U.C.: "+issuer.RUC, props.Text{Style: fontstyle.Bold, Size: 10, Top: 2}),
				text.New("FACTURA", props.Text{Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 8}),
				text.New("No. "+invoice.Number(), props.Text{Style: fontstyle.Bold, Size: 10, Top: 14}),
				text.New("NÚMERO DE AUTORIZACIÓN", props.Text{Style: fontstyle.Bold, Size: 7, Top: 20}),
				text.New(authNumber, at(props.Text{Size: 6.5}, 24)),
				text.New("FECHA Y HORA DE AUTORIZACIÓN: "+authDate, at(small, 29)),
				text.New("AMBIENTE: "+sri.EnvironmentName(issuer.Environment), at(small, 34)),
				text.New("EMISIÓN: NORMAL", at(small, 39)),
			),
		),
		row.New(4).Add(
			col.New(6),
			col.New(6).Add(text.New("CLAVE DE ACCESO", props.Text{Style: fontstyle.Bold, Size: 7})),
		),
		row.New(12).Add(
			col.New(6),
			col.New(6).Add(code.NewBar(invoice.AccessKey, props.Barcode{
				Percent:    100,
				Proportion: props.Proportion{Width: 20, Height: 2},
			})),
		),
		row.New(5).Add(
			col.New(6),
			col.New(6).Add(text.New(invoice.AccessKey, props.Text{Size: 6.5, Align: align.Center, Top: 1})),
		),
	}
}

// buyerRow: datos del comprador y fecha de emisión.
func buyerRow(invoice *entity.Invoice) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("Razón Social / Nombres y Apellidos: "+invoice.Buyer.Name, props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 1,
			}),
			text.New(fmt.Sprintf("Identificación: %s   |   Fecha Emisión: %s",
				invoice.Buyer.Identification,
				invoice.IssueDate.Format("02/01/2006"),
			), props.Text{Size: 8, Top: 6}),
			text.New(fmt.Sprintf("Dirección: %s   |   Email: %s",
				nonEmpty(invoice.Buyer.Address, "-"),
				nonEmpty(invoice.Buyer.Email, "-"),
			), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7.5, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cod.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Descuento", 1, align.Right),
		h("P. Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por ítem; P. Total es el subtotal sin impuestos.
func tableDetailRows(items []entity.InvoiceItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(it.Code, props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 7.5, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(it.Description, props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatMoney(it.UnitPrice), props.Text{Size: 7.5, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(formatMoney(it.Discount), props.Text{Size: 7.5, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatMoney(it.Subtotal), props.Text{Size: 7.5, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalsRow: forma de pago (izq) y bloque de totales (der).
func totalsRow(invoice *entity.Invoice) core.Row {
	subtotals := subtotalsByRate(invoice.Items)

	labels := make([]string, 0, len(subtotals)+4)
	values := make([]string, 0, len(subtotals)+4)
	for _, s := range subtotals {
		labels = append(labels, "SUBTOTAL "+s.rate.String()+"%")
		values = append(values, formatMoney(s.amount))
	}
	labels = append(labels, "SUBTOTAL SIN IMPUESTOS", "TOTAL DESCUENTO", "IVA", "VALOR TOTAL")
	values = append(values,
		formatMoney(invoice.Subtotal),
		formatMoney(invoice.DiscountTotal),
		formatMoney(invoice.TaxTotal),
		formatMoney(invoice.Total),
	)

	labelCol := col.New(3)
	valueCol := col.New(2)
	for i := range labels {
		top := float64(i) * 5
		style := fontstyle.Normal
		if i == len(labels)-1 {
			style = fontstyle.Bold
		}
		labelCol.Add(text.New(labels[i], props.Text{Style: style, Size: 8, Align: align.Right, Right: 2, Top: top}))
		valueCol.Add(text.New(values[i], props.Text{Style: style, Size: 8, Align: align.Right, Right: 1, Top: top}))
	}

	payment := nonEmpty(paymentMethodNames[invoice.PaymentMethod], invoice.PaymentMethod)
	return row.New(float64(len(labels))*5+4).Add(
		col.New(7).Add(
			text.New("FORMA DE PAGO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary}),
			text.New(fmt.Sprintf("%s - %s", invoice.PaymentMethod, payment), props.Text{Size: 7.5, Top: 5}),
			text.New("Valor: "+formatMoney(invoice.Total), props.Text{Size: 7.5, Top: 10}),
		),
		labelCol,
		valueCol,
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

type rateSubtotal struct {
	rate   decimal.Decimal
	amount decimal.Decimal
}

// subtotalsByRate agrupa la base imponible por tarifa de IVA en orden de aparición.
func subtotalsByRate(items []entity.InvoiceItem) []rateSubtotal {
	var out []rateSubtotal
	for _, it := range items {
		found := false
		for i := range out {
			if out[i].rate.Equal(it.TaxRate) {
				out[i].amount = out[i].amount.Add(it.Subtotal)
				found = true
				break
			}
		}
		if !found {
			out = append(out, rateSubtotal{rate: it.TaxRate, amount: it.Subtotal})
		}
	}
	return out
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney dos decimales con separador de miles.
// Ej: 1234.5 → "1,234.50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	if n <= 3 {
		return sign + intPart + "." + frac
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "." + frac
}
