package compose

import (
	"context"

	"github.com/atinyakov/HostsBox/internal/hostsfile"
	"github.com/atinyakov/HostsBox/internal/models"
	"go.uber.org/zap"
)

// Writer replaces the system hosts file with content.
type Writer interface {
	Write(ctx context.Context, content string) hostsfile.Result
}

// Engine applies compositions through a Writer. It never touches the store;
// rollback is the caller's job.
type Engine struct {
	writer Writer
	log    *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(w Writer, log *zap.Logger) *Engine {
	return &Engine{writer: w, log: log}
}

// Preview returns the text Apply would write for entries.
func (e *Engine) Preview(entries []models.Entry) string {
	return Compose(entries)
}

// Apply composes entries and writes the result. A failed write is returned
// as an error wrapping models.ErrElevationCancelled or
// models.ErrElevationFailed. There are no retries.
func (e *Engine) Apply(ctx context.Context, entries []models.Entry) error {
	content := Compose(entries)
	res := e.writer.Write(ctx, content)
	if err := res.Err(); err != nil {
		e.log.Warn("apply hosts failed",
			zap.Stringer("outcome", res.Outcome),
			zap.Bool("sandboxed", res.Sandboxed),
			zap.String("detail", res.Detail))
		return err
	}
	e.log.Info("hosts applied",
		zap.Int("bytes", len(content)),
		zap.Int("active", len(ActiveEntries(entries))))
	return nil
}
