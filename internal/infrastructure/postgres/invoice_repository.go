package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, issuer_id, status, issue_date, establishment, emission_point, sequential, access_key,
	buyer_identification_type, buyer_identification, buyer_name, buyer_address, buyer_email,
	payment_method, subtotal, discount_total, tax_total, total,
	xml_signed, authorization_number, authorized_at, sri_messages, last_error,
	created_at, updated_at`

// Create persiste la cabecera y todas sus líneas. Llamar dentro de TxRunner.RunBilling.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, q,
		inv.ID, inv.IssuerID, string(inv.Status), inv.IssueDate,
		inv.Establishment, inv.EmissionPoint, nullIfZero(inv.Sequential), nullIfEmpty(inv.AccessKey),
		inv.Buyer.IdentificationType, inv.Buyer.Identification, inv.Buyer.Name,
		nullIfEmpty(inv.Buyer.Address), nullIfEmpty(inv.Buyer.Email),
		inv.PaymentMethod, inv.Subtotal, inv.DiscountTotal, inv.TaxTotal, inv.Total,
		nullIfEmpty(inv.XMLSigned), nullIfEmpty(inv.AuthorizationNumber), inv.AuthorizedAt,
		nullIfEmpty(inv.SRIMessages), nullIfEmpty(inv.LastError),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura duplicada: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.InvoiceID = inv.ID
		if item.Position == 0 {
			item.Position = i + 1
		}
		if err := r.createItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepo) createItem(ctx context.Context, item *entity.InvoiceItem) error {
	const q = `
		INSERT INTO invoice_items (id, invoice_id, position, code, description, quantity,
		                           unit_price, discount, tax_rate, subtotal, tax_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, q,
		item.ID, item.InvoiceID, item.Position, nullIfEmpty(item.Code), item.Description,
		item.Quantity, item.UnitPrice, item.Discount, item.TaxRate, item.Subtotal, item.TaxValue,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// Update persiste el avance de la factura en su ciclo de vida.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	const q = `
		UPDATE invoices
		SET status               = $2,
		    sequential           = $3,
		    access_key           = $4,
		    subtotal             = $5,
		    discount_total       = $6,
		    tax_total            = $7,
		    total                = $8,
		    xml_signed           = $9,
		    authorization_number = $10,
		    authorized_at        = $11,
		    sri_messages         = $12,
		    last_error           = $13,
		    updated_at           = $14
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		inv.ID, string(inv.Status), nullIfZero(inv.Sequential), nullIfEmpty(inv.AccessKey),
		inv.Subtotal, inv.DiscountTotal, inv.TaxTotal, inv.Total,
		nullIfEmpty(inv.XMLSigned), nullIfEmpty(inv.AuthorizationNumber), inv.AuthorizedAt,
		nullIfEmpty(inv.SRIMessages), nullIfEmpty(inv.LastError), inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave de acceso o secuencial repetido: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una factura completa (cabecera + líneas) por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	items, err := r.itemsByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *InvoiceRepo) itemsByInvoiceID(ctx context.Context, invoiceID string) ([]entity.InvoiceItem, error) {
	const q = `
		SELECT id, invoice_id, position, code, description, quantity, unit_price,
		       discount, tax_rate, subtotal, tax_value
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.InvoiceItem, error) {
		var it entity.InvoiceItem
		var code *string
		err := row.Scan(&it.ID, &it.InvoiceID, &it.Position, &code, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxRate, &it.Subtotal, &it.TaxValue)
		it.Code = derefStr(code)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoice item: %w", err)
	}
	return items, nil
}

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var status string
	var sequential *int64
	var accessKey, address, email, xmlSigned, authNumber, messages, lastError *string
	err := row.Scan(
		&inv.ID, &inv.IssuerID, &status, &inv.IssueDate,
		&inv.Establishment, &inv.EmissionPoint, &sequential, &accessKey,
		&inv.Buyer.IdentificationType, &inv.Buyer.Identification, &inv.Buyer.Name, &address, &email,
		&inv.PaymentMethod, &inv.Subtotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.Total,
		&xmlSigned, &authNumber, &inv.AuthorizedAt, &messages, &lastError,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatus(status)
	if sequential != nil {
		inv.Sequential = *sequential
	}
	inv.AccessKey = derefStr(accessKey)
	inv.Buyer.Address = derefStr(address)
	inv.Buyer.Email = derefStr(email)
	inv.XMLSigned = derefStr(xmlSigned)
	inv.AuthorizationNumber = derefStr(authNumber)
	inv.SRIMessages = derefStr(messages)
	inv.LastError = derefStr(lastError)
	return &inv, nil
}

func nullIfZero(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
