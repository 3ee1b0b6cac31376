package dto

import "time"

// CreateIssuerRequest body para POST /api/issuers.
type CreateIssuerRequest struct {
	RUC                string `json:"ruc" validate:"required,len=13,digits"`
	LegalName          string `json:"legal_name" validate:"required,max=300"`
	TradeName          string `json:"trade_name" validate:"max=300"`
	HeadOfficeAddress  string `json:"head_office_address" validate:"required,max=300"`
	BranchAddress      string `json:"branch_address" validate:"max=300"`
	Establishment      string `json:"establishment" validate:"required,len=3,digits"`
	EmissionPoint      string `json:"emission_point" validate:"required,len=3,digits"`
	Environment        string `json:"environment" validate:"required,oneof=1 2"`
	RequiredAccounting bool   `json:"required_accounting"`
	SpecialTaxpayer    string `json:"special_taxpayer" validate:"omitempty,min=3,max=13,digits"`
}

// IssuerResponse emisor en respuestas.
type IssuerResponse struct {
	ID                 string    `json:"id"`
	RUC                string    `json:"ruc"`
	LegalName          string    `json:"legal_name"`
	TradeName          string    `json:"trade_name,omitempty"`
	HeadOfficeAddress  string    `json:"head_office_address"`
	BranchAddress      string    `json:"branch_address,omitempty"`
	Establishment      string    `json:"establishment"`
	EmissionPoint      string    `json:"emission_point"`
	Environment        string    `json:"environment"`
	RequiredAccounting bool      `json:"required_accounting"`
	SpecialTaxpayer    string    `json:"special_taxpayer,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
