package signer_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/sritest"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

const unsignedFactura = `<?xml version="1.0" encoding="UTF-8"?>
<factura id="comprobante" version="1.1.0">
  <infoTributaria>
    <ambiente>1</ambiente>
    <razonSocial>Pérez &amp; Hijos Cía. Ltda.</razonSocial>
    <claveAcceso>1501202401179001234500110010010000001231234567814</claveAcceso>
  </infoTributaria>
  <infoFactura>
    <importeTotal>103.30</importeTotal>
  </infoFactura>
</factura>`

var signingTime = time.Date(2024, time.January, 15, 10, 30, 0, 0, time.FixedZone("ECT", -5*3600))

func newTestSigner() *signer.XAdESSigner {
	return signer.NewXAdESSigner(
		signer.WithClock(func() time.Time { return signingTime }),
		signer.WithIDGenerator(func() string { return "test-0001" }),
	)
}

func signTestFactura(t *testing.T) (*etree.Element, *sritest.Identity) {
	t.Helper()
	id := sritest.Shared(t)
	out, err := newTestSigner().Sign([]byte(unsignedFactura), id.Material(t))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	require.NotNil(t, doc.Root())
	return doc.Root(), id
}

func exclusiveDigest(t *testing.T, el *etree.Element) string {
	t.Helper()
	ctx, err := etreeutils.NSBuildParentContext(el)
	require.NoError(t, err)
	detached, err := etreeutils.NSDetatch(ctx, el)
	require.NoError(t, err)
	canonical, err := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(detached)
	require.NoError(t, err)
	h := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(h[:])
}

// ──────────────────────────────────────────────────────────────────────────────
// Estructura
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_EstructuraXAdESBES(t *testing.T) {
	root, id := signTestFactura(t)

	children := root.ChildElements()
	sig := children[len(children)-1]
	assert.Equal(t, "ds", sig.Space)
	assert.Equal(t, "Signature", sig.Tag, "la firma es el último hijo de la raíz")
	assert.Equal(t, "Signature-test-0001", sig.SelectAttrValue("Id", ""))
	assert.Equal(t, signer.NamespaceDS, sig.SelectAttrValue("xmlns:ds", ""))

	assert.Equal(t, signer.AlgExcC14N, sig.FindElement("ds:SignedInfo/ds:CanonicalizationMethod").SelectAttrValue("Algorithm", ""))
	assert.Equal(t, signer.AlgRSASHA256, sig.FindElement("ds:SignedInfo/ds:SignatureMethod").SelectAttrValue("Algorithm", ""))

	refs := sig.FindElements("ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 2)
	assert.Equal(t, "#comprobante", refs[0].SelectAttrValue("URI", ""))
	transforms := refs[0].FindElements("ds:Transforms/ds:Transform")
	require.Len(t, transforms, 2)
	assert.Equal(t, signer.TransformEnveloped, transforms[0].SelectAttrValue("Algorithm", ""))
	assert.Equal(t, signer.AlgExcC14N, transforms[1].SelectAttrValue("Algorithm", ""))
	assert.Equal(t, signer.TypeSignedProperties, refs[1].SelectAttrValue("Type", ""))
	assert.Equal(t, "#SignedProperties-test-0001", refs[1].SelectAttrValue("URI", ""))

	qp := sig.FindElement("ds:Object/xades:QualifyingProperties")
	require.NotNil(t, qp)
	assert.Equal(t, "#Signature-test-0001", qp.SelectAttrValue("Target", ""))
	assert.Equal(t, "2024-01-15T10:30:00-05:00",
		qp.FindElement("xades:SignedProperties/xades:SignedSignatureProperties/xades:SigningTime").Text())

	cert := qp.FindElement(".//xades:Cert")
	require.NotNil(t, cert)
	certDigest := sha256.Sum256(id.Cert.Raw)
	assert.Equal(t, base64.StdEncoding.EncodeToString(certDigest[:]), cert.FindElement("xades:CertDigest/ds:DigestValue").Text())
	assert.Equal(t, "987654321", cert.FindElement("xades:IssuerSerial/ds:X509SerialNumber").Text())
	assert.Equal(t, id.Cert.Issuer.String(), cert.FindElement("xades:IssuerSerial/ds:X509IssuerName").Text())

	assert.Equal(t, base64.StdEncoding.EncodeToString(id.Cert.Raw),
		sig.FindElement("ds:KeyInfo/ds:X509Data/ds:X509Certificate").Text())
}

func TestSign_RaizSinIdUsaURIVacia(t *testing.T) {
	input := strings.Replace(unsignedFactura, `id="comprobante" `, "", 1)
	out, err := newTestSigner().Sign([]byte(input), sritest.Shared(t).Material(t))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	ref := doc.Root().FindElement("ds:Signature/ds:SignedInfo/ds:Reference")
	require.NotNil(t, ref)
	uri := ref.SelectAttr("URI")
	require.NotNil(t, uri)
	assert.Equal(t, "", uri.Value)
}

// ──────────────────────────────────────────────────────────────────────────────
// Verificación criptográfica
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_DigestDelDocumento(t *testing.T) {
	root, _ := signTestFactura(t)
	refs := root.FindElements("ds:Signature/ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 2)
	declared := refs[0].FindElement("ds:DigestValue").Text()

	// Transformación enveloped: la raíz sin ds:Signature.
	stripped := root.Copy()
	stripped.RemoveChild(stripped.FindElement("ds:Signature"))
	assert.Equal(t, declared, exclusiveDigest(t, stripped))

	// Verificación independiente con otro canonicalizador sobre el XML original.
	dec := xml.NewDecoder(strings.NewReader(strings.TrimPrefix(unsignedFactura, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	require.NoError(t, err)
	h := sha256.Sum256(canonical)
	assert.Equal(t, declared, base64.StdEncoding.EncodeToString(h[:]))
}

func TestSign_DigestDeSignedProperties(t *testing.T) {
	root, _ := signTestFactura(t)
	refs := root.FindElements("ds:Signature/ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 2)

	props := root.FindElement("ds:Signature/ds:Object/xades:QualifyingProperties/xades:SignedProperties")
	require.NotNil(t, props)
	assert.Equal(t, "SignedProperties-test-0001", props.SelectAttrValue("Id", ""))
	assert.Equal(t, refs[1].FindElement("ds:DigestValue").Text(), exclusiveDigest(t, props))
}

func TestSign_SignatureValueVerificaConLaLlavePublica(t *testing.T) {
	root, id := signTestFactura(t)

	signedInfo := root.FindElement("ds:Signature/ds:SignedInfo")
	require.NotNil(t, signedInfo)
	ctx, err := etreeutils.NSBuildParentContext(signedInfo)
	require.NoError(t, err)
	detached, err := etreeutils.NSDetatch(ctx, signedInfo)
	require.NoError(t, err)
	canonical, err := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(detached)
	require.NoError(t, err)

	sigValue, err := base64.StdEncoding.DecodeString(root.FindElement("ds:Signature/ds:SignatureValue").Text())
	require.NoError(t, err)
	h := sha256.Sum256(canonical)
	assert.NoError(t, rsa.VerifyPKCS1v15(&id.Key.PublicKey, crypto.SHA256, h[:], sigValue))
}

func TestSign_CaracteresEscapadosSobrevivenLaSerializacion(t *testing.T) {
	cases := map[string]string{
		"retorno de carro": "línea1&#xD;\nlínea2",
		"solo CR":          "cr&#xD;solo",
		"tabulador":        "a&#x9;b",
		"entidades":        "A &amp; B &lt;c&gt; \"q\" 'a'",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			input := strings.Replace(unsignedFactura, "Pérez &amp; Hijos Cía. Ltda.", text, 1)
			out, err := newTestSigner().Sign([]byte(input), sritest.Shared(t).Material(t))
			require.NoError(t, err)

			// Lo que ve el verificador: el XML firmado vuelto a parsear.
			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromBytes(out))
			root := doc.Root()
			declared := root.FindElement("ds:Signature/ds:SignedInfo/ds:Reference/ds:DigestValue").Text()

			stripped := root.Copy()
			stripped.RemoveChild(stripped.FindElement("ds:Signature"))
			assert.Equal(t, declared, exclusiveDigest(t, stripped), "el digest firmado coincide con el contenido publicado")
		})
	}
}

func TestSign_AlterarElDocumentoRompeElDigest(t *testing.T) {
	root, _ := signTestFactura(t)
	declared := root.FindElement("ds:Signature/ds:SignedInfo/ds:Reference/ds:DigestValue").Text()

	tampered := root.Copy()
	tampered.RemoveChild(tampered.FindElement("ds:Signature"))
	tampered.FindElement("infoFactura/importeTotal").SetText("1.00")
	assert.NotEqual(t, declared, exclusiveDigest(t, tampered))
}

func TestSign_DeterministaConRelojEIdFijos(t *testing.T) {
	m := sritest.Shared(t).Material(t)
	first, err := newTestSigner().Sign([]byte(unsignedFactura), m)
	require.NoError(t, err)
	second, err := newTestSigner().Sign([]byte(unsignedFactura), m)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "RSA PKCS#1 v1.5 es determinista")
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_LlaveNoRSA(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	m := sritest.Shared(t).Material(t)
	m.PrivateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	out, err := newTestSigner().Sign([]byte(unsignedFactura), m)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, sri.ErrSigning)
	var signErr *sri.SigningError
	require.ErrorAs(t, err, &signErr)
	assert.Equal(t, "certificado", signErr.Step)
}

func TestSign_XMLMalFormado(t *testing.T) {
	_, err := newTestSigner().Sign([]byte("esto no es XML"), sritest.Shared(t).Material(t))
	assert.ErrorIs(t, err, sri.ErrSigning)
}

func TestSign_DocumentoYaFirmado(t *testing.T) {
	m := sritest.Shared(t).Material(t)
	signed, err := newTestSigner().Sign([]byte(unsignedFactura), m)
	require.NoError(t, err)

	_, err = newTestSigner().Sign(signed, m)
	assert.ErrorIs(t, err, sri.ErrSigning)
}

func TestSign_MaterialNulo(t *testing.T) {
	_, err := newTestSigner().Sign([]byte(unsignedFactura), nil)
	assert.ErrorIs(t, err, sri.ErrSigning)
}
