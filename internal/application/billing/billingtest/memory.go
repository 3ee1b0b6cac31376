// Package billingtest ofrece repositorios en memoria para probar los casos de uso
// de facturación sin PostgreSQL.
package billingtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

// Store guarda emisores, facturas y secuenciales. Devuelve copias, como lo haría la base.
type Store struct {
	mu        sync.Mutex
	issuers   map[string]entity.Issuer
	invoices  map[string]*entity.Invoice
	sequences map[string]int64

	// UpdateErr, si no es nil, lo devuelve cada InvoiceRepo.Update.
	UpdateErr error
	// Updates cuenta las llamadas a InvoiceRepo.Update.
	Updates int
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		issuers:   map[string]entity.Issuer{},
		invoices:  map[string]*entity.Invoice{},
		sequences: map[string]int64{},
	}
}

// Issuers devuelve el repositorio de emisores.
func (s *Store) Issuers() repository.IssuerRepository { return issuerRepo{s} }

// Invoices devuelve el repositorio de facturas.
func (s *Store) Invoices() repository.InvoiceRepository { return invoiceRepo{s} }

// Sequences devuelve el repositorio de secuenciales.
func (s *Store) Sequences() repository.SequenceRepository { return sequenceRepo{s} }

// SetSequence fija el último secuencial usado de un punto de emisión.
func (s *Store) SetSequence(issuerID, estab, ptoEmi string, last int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[seqKey(issuerID, estab, ptoEmi)] = last
}

// Invoice devuelve una copia de la factura guardada, o nil.
func (s *Store) Invoice(id string) *entity.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invoices[id]; ok {
		return cloneInvoice(inv)
	}
	return nil
}

// RunBilling ejecuta fn y, si falla, restaura el estado previo (rollback).
func (s *Store) RunBilling(_ context.Context, fn func(repository.InvoiceRepository, repository.SequenceRepository) error) error {
	s.mu.Lock()
	invoices := make(map[string]*entity.Invoice, len(s.invoices))
	for k, v := range s.invoices {
		invoices[k] = cloneInvoice(v)
	}
	sequences := make(map[string]int64, len(s.sequences))
	for k, v := range s.sequences {
		sequences[k] = v
	}
	s.mu.Unlock()

	if err := fn(s.Invoices(), s.Sequences()); err != nil {
		s.mu.Lock()
		s.invoices, s.sequences = invoices, sequences
		s.mu.Unlock()
		return err
	}
	return nil
}

// ── Emisores ──────────────────────────────────────────────────────────────────

type issuerRepo struct{ s *Store }

func (r issuerRepo) Create(_ context.Context, issuer *entity.Issuer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.issuers {
		if existing.RUC == issuer.RUC {
			return domain.ErrDuplicate
		}
	}
	r.s.issuers[issuer.ID] = *issuer
	return nil
}

func (r issuerRepo) GetByID(_ context.Context, id string) (*entity.Issuer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issuer, ok := r.s.issuers[id]
	if !ok {
		return nil, nil
	}
	return &issuer, nil
}

// ── Facturas ──────────────────────────────────────────────────────────────────

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r invoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Updates++
	if r.s.UpdateErr != nil {
		return r.s.UpdateErr
	}
	if _, ok := r.s.invoices[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

// ── Secuenciales ──────────────────────────────────────────────────────────────

type sequenceRepo struct{ s *Store }

func (r sequenceRepo) Next(_ context.Context, issuerID, estab, ptoEmi string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := seqKey(issuerID, estab, ptoEmi)
	next := r.s.sequences[key] + 1
	if next > 999_999_999 {
		return 0, fmt.Errorf("%w: secuencial agotado para %s", domain.ErrConflict, key)
	}
	r.s.sequences[key] = next
	return next, nil
}

func seqKey(issuerID, estab, ptoEmi string) string {
	return issuerID + "/" + estab + "-" + ptoEmi
}

func cloneInvoice(inv *entity.Invoice) *entity.Invoice {
	out := *inv
	out.Items = append([]entity.InvoiceItem(nil), inv.Items...)
	if inv.AuthorizedAt != nil {
		at := *inv.AuthorizedAt
		out.AuthorizedAt = &at
	}
	return &out
}
