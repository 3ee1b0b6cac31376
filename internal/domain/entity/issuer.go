package entity

import "time"

// Issuer representa al contribuyente emisor (tenant del sistema).
// Cada emisor tiene un único punto de emisión configurado (estab + ptoEmi).
type Issuer struct {
	ID                 string
	RUC                string // 13 dígitos
	LegalName          string // razonSocial
	TradeName          string // nombreComercial (opcional)
	HeadOfficeAddress  string // dirMatriz
	BranchAddress      string // dirEstablecimiento (opcional)
	Establishment      string // 3 dígitos, ej. "001"
	EmissionPoint      string // 3 dígitos, ej. "001"
	Environment        string // "1" = pruebas, "2" = producción
	RequiredAccounting bool   // obligadoContabilidad
	SpecialTaxpayer    string // número de resolución de contribuyente especial (opcional)
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
