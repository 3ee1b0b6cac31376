package sri

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ErrCertificateNotConfigured no hay certificado configurado (SRI_P12_BASE64 ni SRI_P12_PATH).
var ErrCertificateNotConfigured = errors.New("sri: certificado de firma no configurado")

// ConfigCertificateSource lee el PKCS#12 desde la configuración en cada llamada.
// Base64 tiene prioridad sobre Path. Nada se guarda entre llamadas.
type ConfigCertificateSource struct {
	Base64   string
	Path     string
	Password string
}

// NewConfigCertificateSource construye la fuente.
func NewConfigCertificateSource(b64, path, password string) *ConfigCertificateSource {
	return &ConfigCertificateSource{Base64: b64, Path: path, Password: password}
}

// Load devuelve el contenedor y su contraseña. Un base64 mal formado se reporta como
// certificado corrupto para que el operador vea el mismo tipo de error que con un .p12 dañado.
func (s *ConfigCertificateSource) Load(ctx context.Context) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	switch {
	case s.Base64 != "":
		blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s.Base64))
		if err != nil {
			return nil, "", certError(sri.ErrCorruptCertificate, fmt.Errorf("SRI_P12_BASE64: %w", err))
		}
		return blob, s.Password, nil
	case s.Path != "":
		blob, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, "", fmt.Errorf("leer certificado %s: %w", s.Path, err)
		}
		return blob, s.Password, nil
	default:
		return nil, "", ErrCertificateNotConfigured
	}
}
