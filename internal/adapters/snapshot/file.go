package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// FileSource lee el snapshot de un fichero local: JSON o el index.html del
// dashboard.
type FileSource struct {
	path string
}

// NewFileSource crea un FileSource para path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implementa ports.SnapshotProvider.
func (f *FileSource) Load(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Snapshot{}, domain.MissingInput("", "snapshot file %s not found", f.path)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot.FileSource.Load: read %s: %w", f.path, err)
	}

	snap, err := decodeAny(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot.FileSource.Load: %s: %w", f.path, err)
	}
	slog.Debug("snapshot loaded", "path", f.path, "instruments", len(snap.Indices))
	return snap, nil
}

// WriteJSON escribe el snapshot en el formato del dashboard.
func WriteJSON(w io.Writer, snap domain.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("snapshot.WriteJSON: %w", err)
	}
	return nil
}
