// Servicio de firma digital XAdES-BES para comprobantes electrónicos SRI.
// Agrega <ds:Signature> como último hijo del elemento raíz (firma enveloped).

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// XAdESSigner implementa sri.Signer con RSA-SHA256 y C14N exclusiva.
// La firma se arma como árbol DOM y se serializa una sola vez.
type XAdESSigner struct {
	now   func() time.Time
	newID func() string
	canon dsig.Canonicalizer
}

// Option configura el firmador.
type Option func(*XAdESSigner)

// WithClock fija el reloj usado para xades:SigningTime.
func WithClock(now func() time.Time) Option {
	return func(s *XAdESSigner) { s.now = now }
}

// WithIDGenerator fija el generador del sufijo de los Id de la firma.
func WithIDGenerator(newID func() string) Option {
	return func(s *XAdESSigner) { s.newID = newID }
}

// NewXAdESSigner crea el servicio.
func NewXAdESSigner(opts ...Option) *XAdESSigner {
	s := &XAdESSigner{
		now:   time.Now,
		newID: uuid.NewString,
		canon: dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ sri.Signer = (*XAdESSigner)(nil)

// Sign firma el comprobante. Referencias:
//  1. el documento (URI="#<id de la raíz>", o "" si no tiene), transformado con
//     enveloped-signature + exc-c14n.
//  2. xades:SignedProperties (Type=.../SignedProperties).
//
// Cualquier fallo se devuelve como *sri.SigningError.
func (s *XAdESSigner) Sign(xmlBytes []byte, material *sri.CertificateMaterial) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, signingError("entrada", errors.New("XML vacío"))
	}
	key, cert, err := parseMaterial(material)
	if err != nil {
		return nil, signingError("certificado", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, signingError("parsear XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, signingError("parsear XML", errors.New("documento sin raíz"))
	}
	for _, c := range root.ChildElements() {
		if c.Tag == "Signature" {
			return nil, signingError("parsear XML", errors.New("el documento ya está firmado"))
		}
	}

	// 1) Digest del documento sin firma
	docDigest, err := s.digest(root.Copy())
	if err != nil {
		return nil, signingError("digest documento", err)
	}
	docURI := ""
	if id := root.SelectAttrValue("id", ""); id != "" {
		docURI = "#" + id
	}

	// 2) Árbol ds:Signature
	suffix := s.newID()
	signatureID := signatureIDPrefix + suffix
	signedPropsID := signedPropertiesIDPrefix + suffix

	signature := etree.NewElement("ds:Signature")
	signature.CreateAttr("xmlns:ds", NamespaceDS)
	signature.CreateAttr("Id", signatureID)

	signedInfo := signature.CreateElement("ds:SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgExcC14N)
	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)
	addReference(signedInfo, docURI, "", TransformEnveloped, AlgExcC14N).SetText(docDigest)
	propsDigestValue := addReference(signedInfo, "#"+signedPropsID, TypeSignedProperties, AlgExcC14N)

	signatureValue := signature.CreateElement("ds:SignatureValue")

	signature.CreateElement("ds:KeyInfo").
		CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(cert.Raw))

	signedProps := s.buildQualifyingProperties(signature, signatureID, signedPropsID, cert)

	root.AddChild(signature)

	// 3) Digest de SignedProperties, ya dentro del documento para heredar namespaces
	detachedProps, err := detach(signedProps)
	if err != nil {
		return nil, signingError("digest SignedProperties", err)
	}
	propsDigest, err := s.digest(detachedProps)
	if err != nil {
		return nil, signingError("digest SignedProperties", err)
	}
	propsDigestValue.SetText(propsDigest)

	// 4) SignatureValue sobre SignedInfo canonicalizado
	detachedInfo, err := detach(signedInfo)
	if err != nil {
		return nil, signingError("canonicalizar SignedInfo", err)
	}
	canonicalInfo, err := s.canon.Canonicalize(detachedInfo)
	if err != nil {
		return nil, signingError("canonicalizar SignedInfo", err)
	}
	hash := sha256.Sum256(canonicalInfo)
	sigBytes, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		return nil, signingError("RSA-SHA256", err)
	}
	signatureValue.SetText(base64.StdEncoding.EncodeToString(sigBytes))

	// Texto y atributos se escriben como en la forma canónica: un CR o un tab en un
	// atributo quedan como referencia de carácter y el verificador ve lo mismo que se firmó.
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, signingError("serializar", err)
	}
	return out, nil
}

// buildQualifyingProperties agrega ds:Object/xades:QualifyingProperties y devuelve SignedProperties.
func (s *XAdESSigner) buildQualifyingProperties(signature *etree.Element, signatureID, signedPropsID string, cert *x509.Certificate) *etree.Element {
	qp := signature.CreateElement("ds:Object").CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("xmlns:xades", NamespaceXAdES)
	qp.CreateAttr("Target", "#"+signatureID)

	signedProps := qp.CreateElement("xades:SignedProperties")
	signedProps.CreateAttr("Id", signedPropsID)
	ssp := signedProps.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(s.now().Format(time.RFC3339))

	certDigest, issuerName, serial := CertDigestAndIssuerSerial(cert)
	c := ssp.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	cd := c.CreateElement("xades:CertDigest")
	cd.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	cd.CreateElement("ds:DigestValue").SetText(certDigest)
	is := c.CreateElement("xades:IssuerSerial")
	is.CreateElement("ds:X509IssuerName").SetText(issuerName)
	is.CreateElement("ds:X509SerialNumber").SetText(serial)

	return signedProps
}

// addReference agrega una ds:Reference y devuelve su ds:DigestValue (vacío).
func addReference(signedInfo *etree.Element, uri, refType string, transforms ...string) *etree.Element {
	ref := signedInfo.CreateElement("ds:Reference")
	if refType != "" {
		ref.CreateAttr("Type", refType)
	}
	ref.CreateAttr("URI", uri)
	ts := ref.CreateElement("ds:Transforms")
	for _, alg := range transforms {
		ts.CreateElement("ds:Transform").CreateAttr("Algorithm", alg)
	}
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	return ref.CreateElement("ds:DigestValue")
}

// digest canonicaliza el elemento (exc-c14n) y devuelve su SHA-256 en Base64.
// El canonicalizador modifica el elemento: siempre recibe una copia.
func (s *XAdESSigner) digest(el *etree.Element) (string, error) {
	canonical, err := s.canon.Canonicalize(el)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

// detach copia el elemento declarando los namespaces heredados de sus ancestros.
func detach(el *etree.Element) (*etree.Element, error) {
	ctx, err := etreeutils.NSBuildParentContext(el)
	if err != nil {
		return nil, err
	}
	return etreeutils.NSDetatch(ctx, el)
}

func signingError(step string, err error) error {
	return &sri.SigningError{Step: step, Err: err}
}
