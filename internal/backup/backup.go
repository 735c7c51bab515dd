// Package backup writes JSON snapshots of the catalogue and sales history.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mustawda/backend/internal/domain"
)

type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "backups"
	}
	return &Writer{dir: dir}
}

// PathFor returns <dir>/<YYYY-MM-DD>/backup-<HHMMSS>.json for the export
// time in its own location.
func (w *Writer) PathFor(doc domain.BackupDocument) string {
	at := doc.ExportDate
	return filepath.Join(w.dir, at.Format("2006-01-02"), "backup-"+at.Format("150405")+".json")
}

// Write stores doc and returns the file path. The file is written under a
// temporary name and renamed, so readers never see a partial backup.
func (w *Writer) Write(doc domain.BackupDocument) (string, error) {
	path := w.PathFor(doc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, doc); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalise backup file: %w", err)
	}
	return path, nil
}

func Encode(out io.Writer, doc domain.BackupDocument) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}
