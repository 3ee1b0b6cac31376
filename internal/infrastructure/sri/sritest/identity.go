// Package sritest genera identidades de firma de prueba (llave RSA, certificado
// autofirmado y contenedores PKCS#12) para los tests del pipeline.
package sritest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Identity llave y certificado de un firmante de prueba.
type Identity struct {
	Key  *rsa.PrivateKey
	Cert *x509.Certificate
}

var (
	sharedOnce sync.Once
	shared     *Identity
	sharedErr  error
)

// Shared devuelve una identidad RSA-2048 generada una sola vez por proceso de test.
func Shared(t testing.TB) *Identity {
	t.Helper()
	sharedOnce.Do(func() { shared, sharedErr = generate() })
	if sharedErr != nil {
		t.Fatalf("generar identidad de prueba: %v", sharedErr)
	}
	return shared
}

func generate() (*Identity, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(987654321),
		Subject: pkix.Name{
			CommonName:   "COMERCIAL ANDINA S.A.",
			Organization: []string{"SECURITY DATA PRUEBAS"},
			Country:      []string{"EC"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().AddDate(1, 0, 0),
		KeyUsage:  x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Identity{Key: key, Cert: cert}, nil
}

// Material la identidad tal como la entrega el extractor.
func (id *Identity) Material(t testing.TB) *sri.CertificateMaterial {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(id.Key)
	if err != nil {
		t.Fatalf("serializar llave: %v", err)
	}
	return &sri.CertificateMaterial{
		PrivateKeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.Cert.Raw}),
		CertificateDER: id.Cert.Raw,
	}
}

// P12 empaqueta la identidad con el codificador indicado (pkcs12.LegacyDES, pkcs12.Modern, ...).
func (id *Identity) P12(t testing.TB, enc *pkcs12.Encoder, password string) []byte {
	t.Helper()
	blob, err := enc.Encode(id.Key, id.Cert, nil, password)
	if err != nil {
		t.Fatalf("codificar PKCS#12: %v", err)
	}
	return blob
}

// TrustStore contenedor solo con el certificado, sin llave privada.
func (id *Identity) TrustStore(t testing.TB, password string) []byte {
	t.Helper()
	blob, err := pkcs12.LegacyDES.EncodeTrustStore([]*x509.Certificate{id.Cert}, password)
	if err != nil {
		t.Fatalf("codificar trust store: %v", err)
	}
	return blob
}
