package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/application/billing/billingtest"
	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/sritest"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

const (
	testIssuerID    = "11111111-1111-1111-1111-111111111111"
	testP12Password = "Clave.Firma-2024"
	testNumericCode = "12345678"
	testAccessKey   = "1501202401179001234500110010010000001231234567814"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testIssuer() *entity.Issuer {
	return &entity.Issuer{
		ID:                testIssuerID,
		RUC:               "1790012345001",
		LegalName:         "Comercial Andina S.A.",
		TradeName:         "Andina",
		HeadOfficeAddress: "Av. Amazonas N34-12, Quito",
		Establishment:     "001",
		EmissionPoint:     "001",
		Environment:       sri.EnvironmentTest,
	}
}

// newStore crea el store en memoria con el emisor de prueba registrado.
func newStore(t *testing.T) *billingtest.Store {
	t.Helper()
	store := billingtest.NewStore()
	require.NoError(t, store.Issuers().Create(context.Background(), testIssuer()))
	return store
}

// draftRequest factura con dos líneas: 2 × 1.25 al 0 % y 100 − 10 al 12 %.
func draftRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		IssueDate: "2024-01-15",
		Buyer: dto.BuyerRequest{
			IdentificationType: "cedula",
			Identification:     "1712345678",
			Name:               "María Pérez",
			Email:              "maria@example.com",
		},
		Items: []dto.InvoiceItemRequest{
			{Code: "A1", Description: "Arroz 1kg", Quantity: dec("2"), UnitPrice: dec("1.25"), TaxRate: dec("0")},
			{Code: "S1", Description: "Servicio técnico", Quantity: dec("1"), UnitPrice: dec("100"), Discount: dec("10"), TaxRate: dec("12")},
		},
	}
}

// newPipeline pipeline con componentes reales, firma determinista y código numérico fijo.
func newPipeline(extractor sri.CertificateExtractor) *billing.Pipeline {
	if extractor == nil {
		extractor = infrasri.NewP12Extractor()
	}
	clock := func() time.Time { return time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC) }
	return billing.NewPipeline(
		infrasri.NewXMLBuilderService(),
		extractor,
		signer.NewXAdESSigner(signer.WithClock(clock)),
		testNumericCode,
	)
}

// ── Fakes ─────────────────────────────────────────────────────────────────────

// staticCerts CertificateSource mutable entre llamadas.
type staticCerts struct {
	mu       sync.Mutex
	blob     []byte
	password string
	err      error
}

func newCerts(t *testing.T, password string) *staticCerts {
	return &staticCerts{blob: sritest.Shared(t).P12(t, pkcs12.LegacyDES, testP12Password), password: password}
}

func (c *staticCerts) Load(context.Context) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blob, c.password, c.err
}

func (c *staticCerts) setPassword(pw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = pw
}

// countingExtractor cuenta las llamadas al extractor real.
type countingExtractor struct {
	calls int
	inner sri.CertificateExtractor
}

func (e *countingExtractor) Extract(blob []byte, password string) (*sri.CertificateMaterial, error) {
	e.calls++
	return e.inner.Extract(blob, password)
}

// recordingSender registra los envíos asíncronos pedidos.
type recordingSender struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingSender) SendAsync(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

// fakeGateway respuestas programadas de recepción y autorización.
type fakeGateway struct {
	mu          sync.Mutex
	reception   *infrasri.ReceptionResult
	receptErr   error
	auths       []*infrasri.AuthorizationResult // se consumen en orden; el último se repite
	authErr     error
	sendCalls   int
	authCalls   int
	lastPayload []byte
}

func (g *fakeGateway) SendReceipt(_ context.Context, signedXML []byte) (*infrasri.ReceptionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendCalls++
	g.lastPayload = signedXML
	if g.receptErr != nil {
		return nil, g.receptErr
	}
	return g.reception, nil
}

func (g *fakeGateway) Authorize(_ context.Context, _ string) (*infrasri.AuthorizationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authCalls++
	if g.authErr != nil {
		return nil, g.authErr
	}
	i := g.authCalls - 1
	if i >= len(g.auths) {
		i = len(g.auths) - 1
	}
	return g.auths[i], nil
}

// signedInvoice factura ya firmada guardada en el store.
func signedInvoice(t *testing.T, store *billingtest.Store) *entity.Invoice {
	t.Helper()
	inv := &entity.Invoice{
		ID:            "22222222-2222-2222-2222-222222222222",
		IssuerID:      testIssuerID,
		Status:        entity.InvoiceStatusSigned,
		IssueDate:     time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Establishment: "001",
		EmissionPoint: "001",
		Sequential:    123,
		AccessKey:     testAccessKey,
		PaymentMethod: sri.DefaultPaymentMethod,
		XMLSigned:     `<factura id="comprobante"><ds:Signature/></factura>`,
	}
	require.NoError(t, store.Invoices().Create(context.Background(), inv))
	return inv
}
