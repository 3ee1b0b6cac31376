package billing_test

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/sritest"
)

// canonicalDigest exc-c14n + SHA-256 en Base64, con los namespaces heredados declarados.
func canonicalDigest(t *testing.T, el *etree.Element) (string, []byte) {
	t.Helper()
	ctx, err := etreeutils.NSBuildParentContext(el)
	require.NoError(t, err)
	detached, err := etreeutils.NSDetatch(ctx, el)
	require.NoError(t, err)
	canonical, err := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(detached)
	require.NoError(t, err)
	h := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), canonical
}

// verifySignedFactura verifica el comprobante como lo haría el SRI: vuelve a parsear los
// bytes publicados, recalcula ambas referencias y comprueba SignatureValue con el
// certificado embebido en KeyInfo. Devuelve la raíz parseada.
func verifySignedFactura(t *testing.T, signed []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	require.NotNil(t, root)

	sig := root.FindElement("ds:Signature")
	require.NotNil(t, sig)
	refs := sig.FindElements("ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 2)

	stripped := root.Copy()
	stripped.RemoveChild(stripped.FindElement("ds:Signature"))
	docDigest, _ := canonicalDigest(t, stripped)
	assert.Equal(t, refs[0].FindElement("ds:DigestValue").Text(), docDigest, "digest del comprobante")

	props := sig.FindElement("ds:Object/xades:QualifyingProperties/xades:SignedProperties")
	require.NotNil(t, props)
	propsDigest, _ := canonicalDigest(t, props)
	assert.Equal(t, refs[1].FindElement("ds:DigestValue").Text(), propsDigest, "digest de SignedProperties")

	der, err := base64.StdEncoding.DecodeString(sig.FindElement("ds:KeyInfo/ds:X509Data/ds:X509Certificate").Text())
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)

	_, canonicalInfo := canonicalDigest(t, sig.FindElement("ds:SignedInfo"))
	sigValue, err := base64.StdEncoding.DecodeString(sig.FindElement("ds:SignatureValue").Text())
	require.NoError(t, err)
	h := sha256.Sum256(canonicalInfo)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sigValue), "SignatureValue")
	return root
}

// ──────────────────────────────────────────────────────────────────────────────
// Verificación del comprobante firmado
// ──────────────────────────────────────────────────────────────────────────────

func TestPipelineRun_FirmaVerificableConTextosEspeciales(t *testing.T) {
	cases := []struct {
		name        string
		description string
		want        string
	}{
		{"texto plano", "Servicio técnico", "Servicio técnico"},
		{"caracteres reservados", `A & B <c> "q" 'a'`, `A & B <c> "q" 'a'`},
		{"tabulador", "tab\there", "tab\there"},
		{"CRLF", "línea1\r\nlínea2", "línea1\nlínea2"},
		{"solo CR", "cr\rsolo", "cr\nsolo"},
		{"caracter de control", "bell\x07fin", "bellfin"},
		{"no ASCII", "Ñandú cañón Ω €", "Ñandú cañón Ω €"},
	}
	p12 := sritest.Shared(t).P12(t, pkcs12.LegacyDES, testP12Password)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := pipelineDocument()
			doc.Lines[1].Description = tc.description
			doc.Buyer.Name = tc.description

			res, err := newPipeline(nil).Run(context.Background(), doc, p12, testP12Password)
			require.NoError(t, err)

			root := verifySignedFactura(t, res.SignedXML)
			details := root.FindElements("detalles/detalle/descripcion")
			require.Len(t, details, 2)
			assert.Equal(t, tc.want, details[1].Text())
			assert.Equal(t, tc.want, root.FindElement("infoFactura/razonSocialComprador").Text())
		})
	}
}
