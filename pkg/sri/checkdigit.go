package sri

// pesoInicial y pesoMaximo delimitan el ciclo de pesos del módulo 11 del SRI.
// Los pesos se aplican de derecha a izquierda: 2,3,4,5,6,7,2,3,...
const (
	pesoInicial = 2
	pesoMaximo  = 7
)

// ComputeCheckDigit calcula el dígito verificador módulo 11 de una cadena de dígitos
// ASCII (clave de acceso, Ficha Técnica de Comprobantes Electrónicos del SRI).
//
// El llamador garantiza que digits solo contiene '0'..'9' y no está vacío.
// Resultado 11 → "0", resultado 10 → "1".
func ComputeCheckDigit(digits string) string {
	sum := 0
	weight := pesoInicial
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > pesoMaximo {
			weight = pesoInicial
		}
	}
	switch result := 11 - sum%11; result {
	case 11:
		return "0"
	case 10:
		return "1"
	default:
		return string(rune('0' + result))
	}
}

// IsDigits indica si s es no vacío y está compuesto solo por dígitos ASCII.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
