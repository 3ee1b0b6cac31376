// Package sri implementa la infraestructura de comprobantes electrónicos SRI (Ecuador):
// XML factura v1.1.0, extracción PKCS#12, certificado desde configuración y
// clientes SOAP de recepción y autorización.
package sri

import (
	"bytes"
	"encoding/xml"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Atributos fijos de la raíz según XSD factura v1.1.0.
const (
	FacturaRootID  = "comprobante"
	FacturaVersion = "1.1.0"
)

// XMLBuilderService construye el XML de la factura (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build valida el documento, recalcula totales y genera el XML <factura>.
// Es determinista: mismo documento y misma clave producen los mismos bytes.
func (s *XMLBuilderService) Build(doc *domainsri.InvoiceDocument, accessKey string) ([]byte, error) {
	if err := domainsri.ValidateDocument(doc); err != nil {
		return nil, err
	}
	parts, err := domainsri.ParseAccessKey(accessKey)
	if err != nil {
		return nil, err
	}
	if err := checkAccessKeyMatches(doc, parts); err != nil {
		return nil, err
	}
	calc, err := doc.Compute()
	if err != nil {
		return nil, err
	}
	buyerCode, _ := sri.IdentificationCode(doc.Buyer.IdentificationType)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	w := &xmlWriter{enc: enc}

	w.start("factura", attr("id", FacturaRootID), attr("version", FacturaVersion))

	// ---- infoTributaria
	w.start("infoTributaria")
	w.leaf("ambiente", doc.Environment)
	w.leaf("tipoEmision", parts.EmissionType)
	w.leaf("razonSocial", doc.Issuer.LegalName)
	w.optional("nombreComercial", doc.Issuer.TradeName)
	w.leaf("ruc", doc.Issuer.RUC)
	w.leaf("claveAcceso", accessKey)
	w.leaf("codDoc", sri.DocTypeFactura)
	w.leaf("estab", doc.Establishment)
	w.leaf("ptoEmi", doc.EmissionPoint)
	w.leaf("secuencial", domainsri.PadLeft(doc.Sequential, 9))
	w.leaf("dirMatriz", nonEmpty(doc.Issuer.HeadOfficeAddress, sri.DefaultHeadOfficeAddress))
	w.end("infoTributaria")

	// ---- infoFactura
	w.start("infoFactura")
	w.leaf("fechaEmision", doc.IssueDate.Format("02/01/2006"))
	w.optional("dirEstablecimiento", doc.Issuer.BranchAddress)
	w.optional("contribuyenteEspecial", doc.Issuer.SpecialTaxpayer)
	w.leaf("obligadoContabilidad", yesNo(doc.Issuer.RequiredAccounting))
	w.leaf("tipoIdentificacionComprador", buyerCode)
	w.leaf("razonSocialComprador", doc.Buyer.Name)
	w.leaf("identificacionComprador", doc.Buyer.Identification)
	w.optional("direccionComprador", doc.Buyer.Address)
	w.leaf("totalSinImpuestos", formatAmount(calc.SubtotalBeforeTax))
	w.leaf("totalDescuento", formatAmount(calc.DiscountTotal))
	w.start("totalConImpuestos")
	for _, b := range calc.Buckets {
		w.start("totalImpuesto")
		w.leaf("codigo", sri.TaxCodeIVA)
		w.leaf("codigoPorcentaje", b.PercentageCode)
		w.leaf("baseImponible", formatAmount(b.Base))
		w.leaf("tarifa", b.Rate.String())
		w.leaf("valor", formatAmount(b.Value))
		w.end("totalImpuesto")
	}
	w.end("totalConImpuestos")
	w.leaf("propina", formatAmount(calc.Tip))
	w.leaf("importeTotal", formatAmount(calc.Total))
	w.leaf("moneda", sri.Currency)
	w.start("pagos")
	w.start("pago")
	w.leaf("formaPago", nonEmpty(doc.PaymentMethod, sri.DefaultPaymentMethod))
	w.leaf("total", formatAmount(calc.Total))
	w.end("pago")
	w.end("pagos")
	w.end("infoFactura")

	// ---- detalles
	w.start("detalles")
	for _, l := range calc.Lines {
		w.start("detalle")
		w.optional("codigoPrincipal", l.Code)
		w.leaf("descripcion", l.Description)
		w.leaf("cantidad", formatQuantity(l.Quantity))
		w.leaf("precioUnitario", formatAmount(l.UnitPrice))
		w.leaf("descuento", formatAmount(l.Discount))
		w.leaf("precioTotalSinImpuesto", formatAmount(l.Subtotal))
		w.start("impuestos")
		w.start("impuesto")
		w.leaf("codigo", sri.TaxCodeIVA)
		w.leaf("codigoPorcentaje", l.PercentageCode)
		w.leaf("tarifa", l.TaxRate.String())
		w.leaf("baseImponible", formatAmount(l.Subtotal))
		w.leaf("valor", formatAmount(l.TaxValue))
		w.end("impuesto")
		w.end("impuestos")
		w.end("detalle")
	}
	w.end("detalles")

	// ---- infoAdicional (opcional)
	if doc.Buyer.Email != "" || doc.Buyer.Address != "" {
		w.start("infoAdicional")
		if doc.Buyer.Email != "" {
			w.field("Email", doc.Buyer.Email)
		}
		if doc.Buyer.Address != "" {
			w.field("Dirección", doc.Buyer.Address)
		}
		w.end("infoAdicional")
	}

	w.end("factura")
	if w.err == nil {
		w.err = enc.Flush()
	}
	if w.err != nil {
		return nil, sri.NewSerializationError("codificar XML: %v", w.err)
	}
	return buf.Bytes(), nil
}

// checkAccessKeyMatches la clave embebida debe corresponder al documento.
func checkAccessKeyMatches(doc *domainsri.InvoiceDocument, parts *domainsri.AccessKeyParts) error {
	switch {
	case parts.RUC != doc.Issuer.RUC:
		return sri.NewSerializationError("la clave de acceso pertenece al RUC %s, no a %s", parts.RUC, doc.Issuer.RUC)
	case parts.Environment != doc.Environment:
		return sri.NewSerializationError("la clave de acceso es del ambiente %s, el documento del %s", parts.Environment, doc.Environment)
	case parts.DocumentType != sri.DocTypeFactura:
		return sri.NewSerializationError("la clave de acceso es de un comprobante tipo %s", parts.DocumentType)
	case parts.Establishment != doc.Establishment || parts.EmissionPoint != doc.EmissionPoint:
		return sri.NewSerializationError("establecimiento/punto de emisión no coinciden con la clave de acceso")
	case parts.Sequential != domainsri.PadLeft(doc.Sequential, 9):
		return sri.NewSerializationError("el secuencial %s no coincide con la clave de acceso", doc.Sequential)
	case parts.IssueDate.Format("02012006") != doc.IssueDate.Format("02012006"):
		return sri.NewSerializationError("la fecha de emisión no coincide con la clave de acceso")
	}
	return nil
}

// ── helpers de escritura ──────────────────────────────────────────────────────

// xmlWriter conserva el primer error de codificación; las llamadas posteriores no hacen nada.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *xmlWriter) start(local string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs})
}

func (w *xmlWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

// leaf escribe <local>value</local>. CharData escapa & < > " '.
func (w *xmlWriter) leaf(local, value string) {
	w.start(local)
	w.token(xml.CharData(cleanText(value)))
	w.end(local)
}

func (w *xmlWriter) optional(local, value string) {
	if strings.TrimSpace(value) != "" {
		w.leaf(local, value)
	}
}

func (w *xmlWriter) field(name, value string) {
	w.start("campoAdicional", attr("nombre", name))
	w.token(xml.CharData(cleanText(value)))
	w.end("campoAdicional")
}

func attr(local, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: local}, Value: value}
}

// cleanText normaliza a NFC para que la misma cadena siempre serialice igual.
// Los fines de línea quedan en LF y se descartan los caracteres de control
// (salvo tab y LF): un CR sobrevive como &#xD; y cualquier reescritura del XML lo altera.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\r':
			return '\n'
		case r == '\t' || r == '\n':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(strings.TrimSpace(s))
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity dos decimales salvo que la cantidad tenga más precisión (máx. 6, XSD).
func formatQuantity(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.Round(6).String()
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
