package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador de secuenciales por punto de emisión.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa el contador con un upsert; la fila queda bloqueada hasta el fin de la tx,
// así dos emisiones concurrentes del mismo punto nunca reciben el mismo número.
func (r *SequenceRepo) Next(ctx context.Context, issuerID, establishment, emissionPoint string) (int64, error) {
	const q = `
		INSERT INTO emission_sequences (issuer_id, establishment, emission_point, last_sequential, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (issuer_id, establishment, emission_point)
		DO UPDATE SET last_sequential = emission_sequences.last_sequential + 1,
		              updated_at      = now()
		RETURNING last_sequential`
	var next int64
	if err := r.q.QueryRow(ctx, q, issuerID, establishment, emissionPoint).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequential: %w", err)
	}
	return next, nil
}
