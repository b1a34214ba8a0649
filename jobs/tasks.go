// Package jobs holds the background task definitions and the Asynq
// worker that executes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pressroom-cms/pressroom/internal/store"
	"github.com/pressroom-cms/pressroom/internal/uploads"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUploadSweep removes upload files no record references.
	TaskUploadSweep = "uploads:sweep"
)

// UploadSweepPayload is currently empty; the sweep always covers the
// whole upload directory.
type UploadSweepPayload struct{}

// NewUploadSweepTask constructs an Asynq task.
func NewUploadSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(UploadSweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUploadSweep, data), nil
}

// NewUploadSweepHandler returns the handler for TaskUploadSweep. It
// collects every stored and thumbnail filename still referenced by an
// upload record and deletes the rest from the upload directory.
func NewUploadSweepHandler(gateway store.Gateway, files *uploads.Store, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload UploadSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		records, err := gateway.Find(ctx, "uploads", nil, store.FindOptions{})
		if err != nil {
			return err
		}
		referenced := make(map[string]bool, 2*len(records))
		for _, rec := range records {
			referenced[rec.Str("stored")] = true
			referenced[rec.Str("thumbnail")] = true
		}
		removed, err := files.Sweep(referenced)
		if err != nil {
			return err
		}
		if logger != nil && removed > 0 {
			logger.Info("upload sweep", slog.Int("removed", removed))
		}
		return nil
	}
}
