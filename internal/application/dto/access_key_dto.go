package dto

// AccessKeyRequest body para POST /api/sri/access-keys.
type AccessKeyRequest struct {
	IssueDate     string `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DocumentType  string `json:"document_type" validate:"required,len=2,digits"`
	RUC           string `json:"ruc" validate:"required,len=13,digits"`
	Environment   string `json:"environment" validate:"required,oneof=1 2"`
	Establishment string `json:"establishment" validate:"required,len=3,digits"`
	EmissionPoint string `json:"emission_point" validate:"required,len=3,digits"`
	Sequential    string `json:"sequential" validate:"required,max=9,digits"`
	NumericCode   string `json:"numeric_code" validate:"omitempty,max=8,digits"`
	EmissionType  string `json:"emission_type" validate:"omitempty,len=1,digits"`
}

// AccessKeyResponse clave de acceso con sus campos por posición.
type AccessKeyResponse struct {
	AccessKey     string `json:"access_key"`
	IssueDate     string `json:"issue_date"`
	DocumentType  string `json:"document_type"`
	RUC           string `json:"ruc"`
	Environment   string `json:"environment"`
	Establishment string `json:"establishment"`
	EmissionPoint string `json:"emission_point"`
	Sequential    string `json:"sequential"`
	NumericCode   string `json:"numeric_code"`
	EmissionType  string `json:"emission_type"`
	CheckDigit    string `json:"check_digit"`
}
