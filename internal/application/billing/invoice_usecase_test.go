package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

func TestCreateDraft_CalculaTotalesYGuardaBorrador(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())

	out, err := uc.CreateDraft(context.Background(), testIssuerID, draftRequest())
	require.NoError(t, err)

	assert.Equal(t, string(entity.InvoiceStatusDraft), out.Status)
	assert.Empty(t, out.Number, "el secuencial se asigna al emitir")
	assert.Empty(t, out.AccessKey)
	assert.Equal(t, sri.DefaultPaymentMethod, out.PaymentMethod)
	assert.Equal(t, "92.50", out.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", out.DiscountTotal.StringFixed(2))
	assert.Equal(t, "10.80", out.TaxTotal.StringFixed(2))
	assert.Equal(t, "103.30", out.Total.StringFixed(2))
	require.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.Items[1].Position)
	assert.Equal(t, "90.00", out.Items[1].Subtotal.StringFixed(2))

	stored := store.Invoice(out.ID)
	require.NotNil(t, stored)
	assert.Equal(t, entity.InvoiceStatusDraft, stored.Status)
	assert.Equal(t, "001", stored.Establishment)
}

func TestCreateDraft_Validacion(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())

	in := draftRequest()
	in.Items = nil
	in.Buyer.Identification = "123"

	_, err := uc.CreateDraft(context.Background(), testIssuerID, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sri.ErrValidation))
}

func TestCreateDraft_CedulaConLargoIncorrecto(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())

	in := draftRequest()
	in.Buyer.Identification = "171234567"

	_, err := uc.CreateDraft(context.Background(), testIssuerID, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sri.ErrValidation))
}

func TestCreateDraft_EmisorInexistente(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())

	_, err := uc.CreateDraft(context.Background(), "otro-emisor", draftRequest())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_FacturaDeOtroEmisor(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())
	out, err := uc.CreateDraft(context.Background(), testIssuerID, draftRequest())
	require.NoError(t, err)

	_, err = uc.Get(context.Background(), "otro-emisor", out.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Get(context.Background(), testIssuerID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_SoloAntesDeEnviar(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())
	out, err := uc.CreateDraft(context.Background(), testIssuerID, draftRequest())
	require.NoError(t, err)

	cancelled, err := uc.Cancel(context.Background(), testIssuerID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusCancelled), cancelled.Status)

	_, err = uc.Cancel(context.Background(), testIssuerID, out.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "CANCELLED es terminal")
}

func TestSignedXML_BorradorSinXML(t *testing.T) {
	store := newStore(t)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())
	out, err := uc.CreateDraft(context.Background(), testIssuerID, draftRequest())
	require.NoError(t, err)

	_, _, err = uc.SignedXML(context.Background(), testIssuerID, out.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSignedXML_NombreDeArchivoEsLaClave(t *testing.T) {
	store := newStore(t)
	inv := signedInvoice(t, store)
	uc := billing.NewInvoiceUseCase(store, store.Issuers(), store.Invoices())

	body, filename, err := uc.SignedXML(context.Background(), testIssuerID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, testAccessKey+".xml", filename)
	assert.Equal(t, inv.XMLSigned, string(body))
}
