// Lectura del material de firma entregado por el extractor PKCS#12.

package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// parseMaterial devuelve la llave RSA y el certificado de firma. El SRI solo acepta RSA.
func parseMaterial(m *sri.CertificateMaterial) (*rsa.PrivateKey, *x509.Certificate, error) {
	if m == nil {
		return nil, nil, errors.New("material de firma nulo")
	}
	block, _ := pem.Decode(m.PrivateKeyPEM)
	if block == nil {
		return nil, nil, errors.New("la llave privada no es PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		if k, errPKCS1 := x509.ParsePKCS1PrivateKey(block.Bytes); errPKCS1 == nil {
			parsed = k
		} else {
			return nil, nil, fmt.Errorf("parsear llave privada: %w", err)
		}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("la llave debe ser RSA, se recibió %T", parsed)
	}

	der := m.CertificateDER
	if len(der) == 0 {
		certBlock, _ := pem.Decode(m.CertificatePEM)
		if certBlock == nil {
			return nil, nil, errors.New("el material no incluye certificado")
		}
		der = certBlock.Bytes
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parsear certificado: %w", err)
	}
	if !key.PublicKey.Equal(cert.PublicKey) {
		return nil, nil, errors.New("el certificado no corresponde a la llave privada")
	}
	return key, cert, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64), el emisor
// y el serial en decimal, tal como los espera xades:SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}
