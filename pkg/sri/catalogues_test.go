package sri_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

func TestPercentageCode_MapeoSRI(t *testing.T) {
	cases := map[string]string{
		"0":     "0",
		"12":    "2",
		"12.00": "2",
		"15":    "4",
		"5":     "2", // tarifas fuera de tabla caen en "2"
		"8":     "2",
	}
	for rate, want := range cases {
		assert.Equal(t, want, sri.PercentageCode(decimal.RequireFromString(rate)), "tarifa %s", rate)
	}
}

func TestIdentificationCode(t *testing.T) {
	cases := map[sri.IdentificationType]string{
		sri.IdentificationRUC:             "04",
		sri.IdentificationCedula:          "05",
		sri.IdentificationPasaporte:       "06",
		sri.IdentificationConsumidorFinal: "07",
	}
	for kind, want := range cases {
		code, ok := sri.IdentificationCode(kind)
		assert.True(t, ok)
		assert.Equal(t, want, code, "tipo %s", kind)
	}

	_, ok := sri.IdentificationCode("nit")
	assert.False(t, ok, "tipos desconocidos no deben mapearse en silencio")
}
