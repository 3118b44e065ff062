package ports

import (
	"context"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// Notifier presenta el reporte de señales al usuario.
type Notifier interface {
	// Notify publica el reporte. En consola imprime tablas; en Telegram envía
	// un mensaje Markdown.
	Notify(ctx context.Context, report domain.Report) error
}
