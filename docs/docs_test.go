package docs_test

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	"github.com/jhoicas/sri-facturacion/docs"
	apphttp "github.com/jhoicas/sri-facturacion/internal/interfaces/http"
)

type openAPI struct {
	BasePath string                                `json:"basePath"`
	Paths    map[string]map[string]json.RawMessage `json:"paths"`
	Security map[string]json.RawMessage            `json:"securityDefinitions"`
}

var routeParam = regexp.MustCompile(`:([a-zA-Z_]+)`)

func readSpec(t *testing.T) openAPI {
	t.Helper()
	raw, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)
	var spec openAPI
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))
	return spec
}

// ──────────────────────────────────────────────────────────────────────────────
// Especificación registrada
// ──────────────────────────────────────────────────────────────────────────────

func TestSwagger_RegistradoEnSwag(t *testing.T) {
	spec := readSpec(t)
	assert.Equal(t, "/", spec.BasePath)
	assert.Contains(t, spec.Security, "Bearer")
}

// Cada ruta /api del router aparece documentada con su método, y viceversa.
func TestSwagger_CubreLasRutasDelRouter(t *testing.T) {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{JWTSecret: "x"})

	registered := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			continue
		}
		path := strings.TrimRight(r.Path, "/")
		if !strings.HasPrefix(path, "/api/") {
			continue
		}
		registered[strings.ToLower(r.Method)+" "+routeParam.ReplaceAllString(path, "{$1}")] = true
	}
	require.NotEmpty(t, registered)

	documented := map[string]bool{}
	for path, ops := range readSpec(t).Paths {
		for method := range ops {
			documented[method+" "+path] = true
		}
	}
	assert.Equal(t, registered, documented)
}
