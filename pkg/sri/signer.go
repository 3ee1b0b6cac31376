// Package sri: contratos para extracción de certificado y firma XAdES-BES.

package sri

// CertificateMaterial llave y certificado extraídos de un PKCS#12.
// Vive solo durante una operación de firma; no se cachea ni se persiste.
type CertificateMaterial struct {
	PrivateKeyPEM  []byte // PKCS#8, bloque "PRIVATE KEY"
	CertificatePEM []byte // bloque "CERTIFICATE"
	CertificateDER []byte // bytes crudos del certificado, base del CertDigest
}

// CertificateExtractor abre un contenedor PKCS#12 protegido con contraseña.
type CertificateExtractor interface {
	// Extract devuelve *InvalidCertificateError si la contraseña es incorrecta,
	// falta la llave, falta el certificado o el archivo está corrupto.
	Extract(blob []byte, password string) (*CertificateMaterial, error)
}

// Signer firma un XML de comprobante y devuelve el XML con ds:Signature
// como último hijo de la raíz (firma enveloped XAdES-BES).
type Signer interface {
	Sign(xmlBytes []byte, material *CertificateMaterial) ([]byte, error)
}
