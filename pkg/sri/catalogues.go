// Package sri contiene catálogos, algoritmos y contratos del esquema de comprobantes
// electrónicos del SRI (Ecuador), Ficha Técnica offline y XSD factura v1.1.0.
package sri

import "github.com/shopspring/decimal"

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocTypeFactura      = "01"
	DocTypeLiquidacion  = "03"
	DocTypeNotaCredito  = "04"
	DocTypeNotaDebito   = "05"
	DocTypeGuiaRemision = "06"
	DocTypeRetencion    = "07"
)

// =============================================================================
// Tabla 4 - Ambiente / Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas (celcer.sri.gob.ec)
	EnvironmentProduction = "2" // Producción (cel.sri.gob.ec)

	EmissionTypeNormal = "1"
)

// EnvironmentName nombre legible del ambiente para el RIDE.
func EnvironmentName(env string) string {
	if env == EnvironmentProduction {
		return "PRODUCCIÓN"
	}
	return "PRUEBAS"
}

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

// IdentificationType tipo de identificación tal como llega del sistema de origen.
type IdentificationType string

const (
	IdentificationRUC             IdentificationType = "ruc"
	IdentificationCedula          IdentificationType = "cedula"
	IdentificationPasaporte       IdentificationType = "pasaporte"
	IdentificationConsumidorFinal IdentificationType = "consumidor_final"
)

var identificationCodes = map[IdentificationType]string{
	IdentificationRUC:             "04",
	IdentificationCedula:          "05",
	IdentificationPasaporte:       "06",
	IdentificationConsumidorFinal: "07",
}

// IdentificationCode devuelve el código SRI (tipoIdentificacionComprador).
// ok=false si el tipo no está en el catálogo.
func IdentificationCode(t IdentificationType) (code string, ok bool) {
	code, ok = identificationCodes[t]
	return code, ok
}

// ConsumidorFinalID identificación genérica del consumidor final.
const ConsumidorFinalID = "9999999999999"

// =============================================================================
// Tabla 16/17 - Impuestos (código) y tarifas de IVA (codigoPorcentaje)
// =============================================================================

const (
	TaxCodeIVA = "2" // IVA
	TaxCodeICE = "3" // ICE

	PercentageCode0  = "0" // 0 %
	PercentageCode12 = "2" // 12 %
	PercentageCode15 = "4" // 15 %
)

var (
	rate0  = decimal.Zero
	rate12 = decimal.NewFromInt(12)
	rate15 = decimal.NewFromInt(15)
)

// PercentageCode devuelve el codigoPorcentaje para una tarifa de IVA.
// Cualquier tarifa fuera de 0/12/15 cae en "2"; el SRI valida el código, no la tarifa.
func PercentageCode(rate decimal.Decimal) string {
	switch {
	case rate.Equal(rate0):
		return PercentageCode0
	case rate.Equal(rate12):
		return PercentageCode12
	case rate.Equal(rate15):
		return PercentageCode15
	default:
		return PercentageCode12
	}
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PaymentSinSistemaFinanciero   = "01" // Sin utilización del sistema financiero
	PaymentCompensacionDeudas     = "15"
	PaymentTarjetaDebito          = "16"
	PaymentDineroElectronico      = "17"
	PaymentTarjetaPrepago         = "18"
	PaymentTarjetaCredito         = "19"
	PaymentOtrosSistemaFinanciero = "20" // Otros con utilización del sistema financiero
	PaymentEndosoTitulos          = "21"
)

// DefaultPaymentMethod forma de pago cuando el origen no la especifica.
const DefaultPaymentMethod = PaymentSinSistemaFinanciero

// Currency moneda de todos los comprobantes (elemento moneda).
const Currency = "USD"

// DefaultHeadOfficeAddress valor de dirMatriz cuando el emisor no la registró.
const DefaultHeadOfficeAddress = "NO DEFINIDO"
