// Package docs registra la especificación OpenAPI de la API en swag.
// swagger.json y swagger.yaml salen de las anotaciones de los handlers:
//
//	swag init -g cmd/api/main.go -o docs
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

// SwaggerInfo metadatos de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SRI Facturación API",
	Description:      "Emisión de facturas electrónicas SRI Ecuador: clave de acceso, XML v1.1.0, firma XAdES-BES y envío a los web services.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerJSON,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
