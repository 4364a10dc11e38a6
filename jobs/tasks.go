package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpireAssignments sweeps lapsed role assignments and drops the
	// cache entries they fed.
	TaskExpireAssignments = "authz:expire-assignments"
)

// AssignmentSweeper is implemented by the assignments service.
type AssignmentSweeper interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// NewExpireAssignmentsTask constructs the periodic sweep task.
func NewExpireAssignmentsTask() *asynq.Task {
	return asynq.NewTask(TaskExpireAssignments, nil)
}

// HandleExpireAssignments returns the handler for TaskExpireAssignments.
func HandleExpireAssignments(sweeper AssignmentSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		swept, err := sweeper.ExpireSweep(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("expire assignments sweep", slog.Any("error", err))
			}
			return err
		}
		if swept > 0 && logger != nil {
			logger.Info("expire assignments sweep done", slog.Int("principals", swept))
		}
		return nil
	}
}
