package ports

import (
	"context"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// SnapshotProvider entrega el snapshot de mercado ya convertido al modelo.
type SnapshotProvider interface {
	// Load devuelve un snapshot completo. Errores de tipo domain.ErrMissingInput
	// si no hay snapshot disponible y domain.ErrMalformedInput si no se puede
	// interpretar.
	Load(ctx context.Context) (domain.Snapshot, error)
}
