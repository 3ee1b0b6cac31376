package sri

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/pkg/sri"
	"github.com/jhoicas/sri-facturacion/pkg/validation"
)

var maxTaxRate = decimal.NewFromInt(100)

// ValidateDocument valida el documento completo antes de cualquier trabajo de
// serialización o firma. Acumula todos los errores con errors.Join.
func ValidateDocument(d *InvoiceDocument) error {
	if d == nil {
		return sri.NewValidationError("", "documento nulo")
	}
	var errs []error
	if err := validation.Struct(d); err != nil {
		errs = append(errs, err)
	}
	if d.IssueDate.IsZero() {
		errs = append(errs, sri.NewValidationError("issueDate", "es obligatorio"))
	}
	if _, ok := sri.IdentificationCode(d.Buyer.IdentificationType); !ok && d.Buyer.IdentificationType != "" {
		errs = append(errs, sri.NewValidationError("customer.identificationType", "tipo %q no soportado", d.Buyer.IdentificationType))
	}
	errs = append(errs, validateBuyerIdentification(d.Buyer)...)
	for i, l := range d.Lines {
		errs = append(errs, validateLine(i, l)...)
	}
	return joinErrors(errs)
}

// validateBuyerIdentification revisa el largo según el tipo (RUC 13, cédula 10) y
// exige la identificación genérica para consumidor final.
func validateBuyerIdentification(b Buyer) []error {
	field := "customer.identification"
	switch b.IdentificationType {
	case sri.IdentificationRUC:
		if len(b.Identification) != 13 || !sri.IsDigits(b.Identification) {
			return []error{sri.NewValidationError(field, "un RUC debe tener 13 dígitos")}
		}
	case sri.IdentificationCedula:
		if len(b.Identification) != 10 || !sri.IsDigits(b.Identification) {
			return []error{sri.NewValidationError(field, "una cédula debe tener 10 dígitos")}
		}
	case sri.IdentificationConsumidorFinal:
		if b.Identification != sri.ConsumidorFinalID {
			return []error{sri.NewValidationError(field, "consumidor final se identifica con %s", sri.ConsumidorFinalID)}
		}
	}
	return nil
}

func validateLine(i int, l Line) []error {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
	var errs []error
	if !l.Quantity.IsPositive() {
		errs = append(errs, sri.NewValidationError(field("quantity"), "debe ser mayor que cero"))
	}
	if l.UnitPrice.IsNegative() {
		errs = append(errs, sri.NewValidationError(field("unitPrice"), "no puede ser negativo"))
	}
	if l.Discount.IsNegative() {
		errs = append(errs, sri.NewValidationError(field("discount"), "no puede ser negativo"))
	}
	if l.TaxRate.IsNegative() || l.TaxRate.GreaterThan(maxTaxRate) {
		errs = append(errs, sri.NewValidationError(field("ivaRate"), "debe estar entre 0 y 100"))
	}
	return errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
