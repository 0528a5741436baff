package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"realitky/pipeline/internal/models"
)

// Writer appends normalized records to a JSONL dataset file. It is a
// fire-and-forget side channel: write failures are logged, never
// propagated, and the pipeline's outcome does not depend on it.
type Writer struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	logger *logrus.Logger
}

// NewWriter creates a dataset writer. An empty path disables the channel.
func NewWriter(path string, logger *logrus.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Emit appends one record. Best effort only.
func (w *Writer) Emit(property *models.PropertyData) {
	if w.path == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			w.logger.WithError(err).Warn("Failed to open dataset file")
			return
		}
	}

	payload, err := json.Marshal(property)
	if err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"source":      property.Source,
			"external_id": property.ExternalID,
		}).Warn("Failed to marshal record for dataset")
		return
	}

	if _, err := w.file.Write(append(payload, '\n')); err != nil {
		w.logger.WithError(err).Warn("Failed to append record to dataset")
	}
}

func (w *Writer) open() error {
	dir := filepath.Dir(w.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
