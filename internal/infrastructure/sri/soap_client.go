package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ── Endpoints ─────────────────────────────────────────────────────────────────

const (
	receptionURLTest     = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
	authorizationURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"
	receptionURLProd     = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
	authorizationURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"

	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	maxResponseSize = 1 << 20 // 1 MB
)

// Estados devueltos por los web services.
const (
	ReceptionReceived = "RECIBIDA"
	ReceptionReturned = "DEVUELTA"

	AuthorizationAuthorized    = "AUTORIZADO"
	AuthorizationNotAuthorized = "NO AUTORIZADO"
	AuthorizationInProcess     = "EN PROCESO"
)

// Endpoints URLs de recepción y autorización de un ambiente.
type Endpoints struct {
	Reception     string
	Authorization string
}

// EndpointsFor devuelve las URLs oficiales del ambiente ("1" pruebas, "2" producción).
func EndpointsFor(environment string) (Endpoints, error) {
	switch environment {
	case sri.EnvironmentTest:
		return Endpoints{Reception: receptionURLTest, Authorization: authorizationURLTest}, nil
	case sri.EnvironmentProduction:
		return Endpoints{Reception: receptionURLProd, Authorization: authorizationURLProd}, nil
	default:
		return Endpoints{}, fmt.Errorf("soap: ambiente desconocido %q (usar 1 o 2)", environment)
	}
}

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Message mensaje informativo, de advertencia o de error del SRI.
type Message struct {
	Identifier     string `json:"identificador"`
	Text           string `json:"mensaje"`
	AdditionalInfo string `json:"informacionAdicional,omitempty"`
	Type           string `json:"tipo"`
}

func (m Message) String() string {
	s := m.Identifier + ": " + m.Text
	if m.AdditionalInfo != "" {
		s += " (" + m.AdditionalInfo + ")"
	}
	return s
}

// JoinMessages une los mensajes en una sola línea para logs y last_error.
func JoinMessages(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}

// ReceptionResult respuesta de validarComprobante.
type ReceptionResult struct {
	Status   string
	Messages []Message
}

// Received true si el SRI aceptó el comprobante para autorización.
func (r *ReceptionResult) Received() bool { return r.Status == ReceptionReceived }

// AuthorizationResult respuesta de autorizacionComprobante.
type AuthorizationResult struct {
	Status       string
	Number       string
	AuthorizedAt time.Time
	Comprobante  string // XML autorizado tal como lo devuelve el SRI
	Messages     []Message
}

// Pending true si el SRI todavía no tiene respuesta (sin autorizaciones o EN PROCESO).
func (r *AuthorizationResult) Pending() bool {
	return r.Status == "" || r.Status == AuthorizationInProcess
}

// SRIGateway puerto de salida hacia los web services offline del SRI.
type SRIGateway interface {
	// SendReceipt envía el XML firmado a recepción.
	SendReceipt(ctx context.Context, signedXML []byte) (*ReceptionResult, error)
	// Authorize consulta la autorización por clave de acceso.
	Authorize(ctx context.Context, accessKey string) (*AuthorizationResult, error)
}

var (
	// ErrSOAPFault el servicio respondió con soap:Fault.
	ErrSOAPFault = errors.New("soap: fault")
	// ErrTransport el servicio no respondió o la respuesta no es un SOAP válido.
	ErrTransport = errors.New("soap: transporte")
)

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPSRIClient implementa SRIGateway sobre HTTP. No reintenta: la política de
// reintentos es del orquestador.
type SOAPSRIClient struct {
	httpClient *http.Client
	endpoints  Endpoints
}

// NewSOAPSRIClient construye el cliente. El WS del SRI puede tardar varios segundos.
func NewSOAPSRIClient(endpoints Endpoints, timeout time.Duration) *SOAPSRIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SOAPSRIClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoints:  endpoints,
	}
}

var _ SRIGateway = (*SOAPSRIClient)(nil)

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// validarComprobanteBody cuerpo de la operación de recepción.
type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ns2:validarComprobante"`
	Xmlns   string   `xml:"xmlns:ns2,attr"`
	XML     string   `xml:"xml"` // XML firmado en Base64
}

// autorizacionComprobanteBody cuerpo de la operación de autorización.
type autorizacionComprobanteBody struct {
	XMLName   xml.Name `xml:"ns2:autorizacionComprobante"`
	Xmlns     string   `xml:"xmlns:ns2,attr"`
	AccessKey string   `xml:"claveAccesoComprobante"`
}

// ── SendReceipt ───────────────────────────────────────────────────────────────

// SendReceipt envía el comprobante firmado a RecepcionComprobantesOffline.
func (c *SOAPSRIClient) SendReceipt(ctx context.Context, signedXML []byte) (*ReceptionResult, error) {
	if len(signedXML) == 0 {
		return nil, errors.New("soap: comprobante vacío")
	}
	body := &validarComprobanteBody{
		Xmlns: nsRecepcion,
		XML:   base64.StdEncoding.EncodeToString(signedXML),
	}
	root, err := c.call(ctx, c.endpoints.Reception, body)
	if err != nil {
		return nil, err
	}
	resp := findLocal(root, "RespuestaRecepcionComprobante")
	if resp == nil {
		return nil, errors.New("soap: respuesta de recepción sin RespuestaRecepcionComprobante")
	}
	return &ReceptionResult{
		Status:   childText(resp, "estado"),
		Messages: parseMessages(resp),
	}, nil
}

// ── Authorize ─────────────────────────────────────────────────────────────────

// Authorize consulta AutorizacionComprobantesOffline. Sin autorizaciones en la
// respuesta el resultado queda pendiente (Status vacío).
func (c *SOAPSRIClient) Authorize(ctx context.Context, accessKey string) (*AuthorizationResult, error) {
	body := &autorizacionComprobanteBody{Xmlns: nsAutorizacion, AccessKey: accessKey}
	root, err := c.call(ctx, c.endpoints.Authorization, body)
	if err != nil {
		return nil, err
	}
	resp := findLocal(root, "RespuestaAutorizacionComprobante")
	if resp == nil {
		return nil, errors.New("soap: respuesta de autorización sin RespuestaAutorizacionComprobante")
	}
	auth := findLocal(resp, "autorizacion")
	if auth == nil {
		return &AuthorizationResult{}, nil
	}
	result := &AuthorizationResult{
		Status:      childText(auth, "estado"),
		Number:      childText(auth, "numeroAutorizacion"),
		Comprobante: childText(auth, "comprobante"),
		Messages:    parseMessages(auth),
	}
	if raw := childText(auth, "fechaAutorizacion"); raw != "" {
		result.AuthorizedAt = parseSRITime(raw)
	}
	return result, nil
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

// call serializa el envelope, hace el POST y devuelve la raíz de la respuesta.
func (c *SOAPSRIClient) call(ctx context.Context, url string, content any) (*etree.Element, error) {
	if url == "" {
		return nil, errors.New("soap: endpoint no configurado")
	}
	envelope := soapEnvelope{XmlnsS: soapNS, Body: soapBody{Content: content}}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %w", ErrTransport, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil || doc.Root() == nil {
		return nil, fmt.Errorf("%w: respuesta no es XML (HTTP %d): %s", ErrTransport, resp.StatusCode, truncate(string(raw), 200))
	}
	root := doc.Root()
	if fault := findLocal(root, "Fault"); fault != nil {
		return nil, fmt.Errorf("%w [%s]: %s", ErrSOAPFault, childText(fault, "faultcode"), childText(fault, "faultstring"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}
	return root, nil
}

// charsetReader acepta respuestas declaradas en ISO-8859-1 u otro charset IANA.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("soap: charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("soap: charset %q no soportado", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ── Helpers de parseo ─────────────────────────────────────────────────────────

// findLocal busca en profundidad el primer elemento con ese nombre local, sin importar el prefijo.
func findLocal(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := findLocal(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func childText(el *etree.Element, tag string) string {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return strings.TrimSpace(c.Text())
		}
	}
	return ""
}

// parseMessages recoge todos los mensajes/mensaje bajo el elemento.
func parseMessages(el *etree.Element) []Message {
	var msgs []Message
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == "mensaje" && len(c.ChildElements()) > 0 {
				msgs = append(msgs, Message{
					Identifier:     childText(c, "identificador"),
					Text:           childText(c, "mensaje"),
					AdditionalInfo: childText(c, "informacionAdicional"),
					Type:           childText(c, "tipo"),
				})
				continue
			}
			walk(c)
		}
	}
	walk(el)
	return msgs
}

func parseSRITime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "02/01/2006 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
