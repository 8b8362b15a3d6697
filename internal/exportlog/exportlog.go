// Package exportlog keeps a history of export attempts: who exported which
// data, in what format, and whether it succeeded.
package exportlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry is one export attempt.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	DataType  string    `json:"data_type"`
	Format    string    `json:"format"`
	FileName  string    `json:"file_name,omitempty"`
	RowCount  int       `json:"row_count"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry stamps a fresh ID and creation time. A non-nil err marks the entry
// failed.
func NewEntry(dataType, format, userID string, err error) Entry {
	e := Entry{
		ID:        uuid.New(),
		DataType:  dataType,
		Format:    format,
		UserID:    userID,
		Status:    StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		e.Status = StatusFailed
		e.Error = err.Error()
	}
	return e
}

// Recorder persists export entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Lister is implemented by recorders that can page back through history.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
}

// LogRecorder writes entries to the structured log only.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, e Entry) error {
	evt := r.logger.Info()
	if e.Status == StatusFailed {
		evt = r.logger.Warn().Str("error", e.Error)
	}
	evt.
		Str("export_id", e.ID.String()).
		Str("data_type", e.DataType).
		Str("format", e.Format).
		Str("file_name", e.FileName).
		Int("rows", e.RowCount).
		Str("user_id", e.UserID).
		Str("role", e.Role).
		Str("request_id", e.RequestID).
		Str("status", e.Status).
		Msg("export")
	return nil
}
