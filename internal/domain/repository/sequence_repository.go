package repository

import "context"

// SequenceRepository asigna secuenciales por punto de emisión.
type SequenceRepository interface {
	// Next incrementa y devuelve el siguiente secuencial de (emisor, estab, ptoEmi).
	// El primer valor es 1. Debe ejecutarse en la misma transacción que guarda la factura.
	Next(ctx context.Context, issuerID, establishment, emissionPoint string) (int64, error)
}
