package sri

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	xpkcs12 "golang.org/x/crypto/pkcs12"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// P12Extractor abre contenedores PKCS#12 (.p12/.pfx) emitidos por las entidades
// certificadoras (BCE, Security Data, ANF). Intenta primero el decodificador
// clásico (3DES/RC2 + MAC SHA-1) y, si el formato no es soportado, el moderno
// (PBES2/AES + MAC SHA-256).
type P12Extractor struct{}

// NewP12Extractor crea el extractor.
func NewP12Extractor() *P12Extractor {
	return &P12Extractor{}
}

var _ sri.CertificateExtractor = (*P12Extractor)(nil)

// Extract devuelve la llave privada (PKCS#8 PEM) y el certificado de firma (PEM y DER).
// Los fallos se devuelven como *sri.InvalidCertificateError con su subtipo.
func (e *P12Extractor) Extract(blob []byte, password string) (*sri.CertificateMaterial, error) {
	if len(blob) == 0 {
		return nil, certError(sri.ErrCorruptCertificate, errors.New("contenedor vacío"))
	}

	key, certs, err := decodeLegacy(blob, password)
	if err != nil {
		if errors.Is(err, xpkcs12.ErrIncorrectPassword) || errors.Is(err, xpkcs12.ErrDecryption) {
			return nil, certError(sri.ErrWrongPassword, nil)
		}
		var invalid *sri.InvalidCertificateError
		if errors.As(err, &invalid) {
			return nil, err
		}
		key, certs, err = decodeModern(blob, password)
		if err != nil {
			return nil, err
		}
	}
	return assemble(key, certs)
}

// decodeLegacy usa golang.org/x/crypto/pkcs12. ToPEM entrega las llaves en
// PKCS#1 (RSA) o SEC1 (EC) bajo el tipo "PRIVATE KEY".
func decodeLegacy(blob []byte, password string) (crypto.PrivateKey, []*x509.Certificate, error) {
	blocks, err := xpkcs12.ToPEM(blob, password)
	if err != nil {
		return nil, nil, err
	}
	var (
		key   crypto.PrivateKey
		certs []*x509.Certificate
	)
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if key != nil {
				return nil, nil, certError(sri.ErrCorruptCertificate, errors.New("el contenedor tiene más de una llave privada"))
			}
			if key, err = parsePrivateKey(b.Bytes); err != nil {
				return nil, nil, certError(sri.ErrCorruptCertificate, err)
			}
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, nil, certError(sri.ErrCorruptCertificate, err)
			}
			certs = append(certs, c)
		}
	}
	return key, certs, nil
}

// decodeModern usa software.sslmate.com/src/go-pkcs12, que soporta PBES2.
func decodeModern(blob []byte, password string) (crypto.PrivateKey, []*x509.Certificate, error) {
	key, cert, chain, err := pkcs12.DecodeChain(blob, password)
	if err != nil {
		return nil, nil, classifyModernError(err)
	}
	return key, append([]*x509.Certificate{cert}, chain...), nil
}

func classifyModernError(err error) error {
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword), errors.Is(err, pkcs12.ErrDecryption):
		return certError(sri.ErrWrongPassword, nil)
	case strings.Contains(err.Error(), "private key missing"):
		return certError(sri.ErrMissingPrivateKey, nil)
	case strings.Contains(err.Error(), "certificate missing"):
		return certError(sri.ErrMissingCertificate, nil)
	default:
		return certError(sri.ErrCorruptCertificate, err)
	}
}

// assemble elige el certificado cuya llave pública corresponde a la llave privada;
// el resto son certificados de la cadena de la entidad certificadora.
func assemble(key crypto.PrivateKey, certs []*x509.Certificate) (*sri.CertificateMaterial, error) {
	if key == nil {
		return nil, certError(sri.ErrMissingPrivateKey, nil)
	}
	if len(certs) == 0 {
		return nil, certError(sri.ErrMissingCertificate, nil)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, certError(sri.ErrCorruptCertificate, fmt.Errorf("tipo de llave no soportado: %T", key))
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return nil, certError(sri.ErrCorruptCertificate, fmt.Errorf("tipo de llave no soportado: %T", key))
	}

	var leaf *x509.Certificate
	for _, c := range certs {
		if pub.Equal(c.PublicKey) {
			leaf = c
			break
		}
	}
	if leaf == nil {
		return nil, certError(sri.ErrMissingCertificate, errors.New("ningún certificado corresponde a la llave privada"))
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, certError(sri.ErrCorruptCertificate, err)
	}
	return &sri.CertificateMaterial{
		PrivateKeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leaf.Raw}),
		CertificateDER: leaf.Raw,
	}, nil
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("llave privada ilegible: %w", err)
	}
	return k, nil
}

func certError(kind, err error) error {
	return &sri.InvalidCertificateError{Kind: kind, Err: err}
}
