// p12check verifica un certificado de firma PKCS#12 antes de configurarlo en la API:
// abre el contenedor con la contraseña e informa el tipo de fallo o los datos del certificado.
//
// Uso: go run ./cmd/p12check -p12 firma.p12 -password '...'
// Sin flags toma SRI_P12_BASE64 / SRI_P12_PATH / SRI_P12_PASSWORD de la configuración.
package main

import (
	"context"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

func main() {
	path := flag.String("p12", "", "ruta al .p12/.pfx (vacío = configuración)")
	password := flag.String("password", "", "contraseña del contenedor")
	flag.Parse()

	source := infrasri.NewConfigCertificateSource("", *path, *password)
	if *path == "" {
		cfg, err := config.Load()
		if err != nil {
			fail("configuración", err)
		}
		source = infrasri.NewConfigCertificateSource(cfg.SRI.P12Base64, cfg.SRI.P12Path, cfg.SRI.P12Password)
	}

	blob, pw, err := source.Load(context.Background())
	if err != nil {
		fail("lectura", err)
	}
	fmt.Printf("Contenedor leído: %d bytes\n", len(blob))

	material, err := infrasri.NewP12Extractor().Extract(blob, pw)
	if err != nil {
		fail(kind(err), err)
	}
	cert, err := x509.ParseCertificate(material.CertificateDER)
	if err != nil {
		fail("certificado", err)
	}

	fmt.Println("Certificado y contraseña correctos")
	fmt.Printf("  Sujeto:  %s\n", cert.Subject)
	fmt.Printf("  Emisor:  %s\n", cert.Issuer)
	fmt.Printf("  Serie:   %s\n", cert.SerialNumber)
	fmt.Printf("  Válido:  %s → %s\n", cert.NotBefore.Format(time.DateOnly), cert.NotAfter.Format(time.DateOnly))
	if now := time.Now(); now.After(cert.NotAfter) || now.Before(cert.NotBefore) {
		fmt.Println("  ATENCIÓN: el certificado no está vigente hoy; el SRI rechazará la firma")
		os.Exit(2)
	}
}

func kind(err error) string {
	switch {
	case errors.Is(err, sri.ErrWrongPassword):
		return "contraseña incorrecta"
	case errors.Is(err, sri.ErrMissingPrivateKey):
		return "el contenedor no tiene llave privada"
	case errors.Is(err, sri.ErrMissingCertificate):
		return "el contenedor no tiene certificado"
	case errors.Is(err, sri.ErrCorruptCertificate):
		return "archivo corrupto o no es PKCS#12"
	default:
		return "certificado inválido"
	}
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR (%s): %v\n", step, err)
	os.Exit(1)
}
