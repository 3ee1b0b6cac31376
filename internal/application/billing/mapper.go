package billing

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/jhoicas/sri-facturacion/internal/application/dto"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// buildDocument arma el documento SRI a partir del emisor y la factura persistida.
func buildDocument(issuer *entity.Issuer, inv *entity.Invoice) *domainsri.InvoiceDocument {
	doc := &domainsri.InvoiceDocument{
		Environment: issuer.Environment,
		Issuer: domainsri.Issuer{
			RUC:                issuer.RUC,
			LegalName:          issuer.LegalName,
			TradeName:          issuer.TradeName,
			HeadOfficeAddress:  issuer.HeadOfficeAddress,
			BranchAddress:      issuer.BranchAddress,
			RequiredAccounting: issuer.RequiredAccounting,
			SpecialTaxpayer:    issuer.SpecialTaxpayer,
		},
		IssueDate:     inv.IssueDate,
		Establishment: inv.Establishment,
		EmissionPoint: inv.EmissionPoint,
		Buyer: domainsri.Buyer{
			IdentificationType: sri.IdentificationType(inv.Buyer.IdentificationType),
			Identification:     inv.Buyer.Identification,
			Name:               inv.Buyer.Name,
			Address:            inv.Buyer.Address,
			Email:              inv.Buyer.Email,
		},
		PaymentMethod: inv.PaymentMethod,
		Lines: lo.Map(inv.Items, func(it entity.InvoiceItem, _ int) domainsri.Line {
			return domainsri.Line{
				Code:        it.Code,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Discount:    it.Discount,
				TaxRate:     it.TaxRate,
			}
		}),
	}
	if inv.Sequential > 0 {
		doc.Sequential = strconv.FormatInt(inv.Sequential, 10)
	}
	return doc
}

// applyTotals copia a la factura los valores calculados por línea y los totales.
func applyTotals(inv *entity.Invoice, c *domainsri.Computation) {
	for i := range inv.Items {
		if i >= len(c.Lines) {
			break
		}
		inv.Items[i].Subtotal = c.Lines[i].Subtotal
		inv.Items[i].TaxValue = c.Lines[i].TaxValue
		inv.Items[i].Discount = c.Lines[i].Discount
	}
	inv.Subtotal = c.SubtotalBeforeTax
	inv.DiscountTotal = c.DiscountTotal
	inv.TaxTotal = c.TaxTotal
	inv.Total = c.Total
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:        inv.ID,
		IssuerID:  inv.IssuerID,
		Status:    string(inv.Status),
		Number:    inv.Number(),
		IssueDate: inv.IssueDate.Format("2006-01-02"),
		AccessKey: inv.AccessKey,
		Buyer: dto.BuyerResponse{
			IdentificationType: inv.Buyer.IdentificationType,
			Identification:     inv.Buyer.Identification,
			Name:               inv.Buyer.Name,
			Address:            inv.Buyer.Address,
			Email:              inv.Buyer.Email,
		},
		PaymentMethod:       inv.PaymentMethod,
		Subtotal:            inv.Subtotal,
		DiscountTotal:       inv.DiscountTotal,
		TaxTotal:            inv.TaxTotal,
		Total:               inv.Total,
		AuthorizationNumber: inv.AuthorizationNumber,
		AuthorizedAt:        inv.AuthorizedAt,
		SRIMessages:         inv.SRIMessages,
		LastError:           inv.LastError,
		Items: lo.Map(inv.Items, func(it entity.InvoiceItem, _ int) dto.InvoiceItemResponse {
			return dto.InvoiceItemResponse{
				Position:    it.Position,
				Code:        it.Code,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Discount:    it.Discount,
				TaxRate:     it.TaxRate,
				Subtotal:    it.Subtotal,
				TaxValue:    it.TaxValue,
			}
		}),
	}
}
