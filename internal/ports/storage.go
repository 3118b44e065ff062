package ports

import (
	"context"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// Storage persiste el resultado de cada ejecución batch.
type Storage interface {
	// SaveReport persiste el reporte y devuelve el ID de la ejecución.
	SaveReport(ctx context.Context, report domain.Report) (string, error)

	// GetRuns devuelve las últimas limit ejecuciones, la más reciente primero.
	GetRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
