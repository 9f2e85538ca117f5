// Package reminder dispatches due review invitations. Email delivery itself
// belongs to the notification service; this worker only publishes the
// reminder.due events it consumes.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/repository"
)

// DefaultBatchSize bounds how many invitations one sweep dispatches.
const DefaultBatchSize = 100

// ReminderPublisher publishes reminder.due events. *event.Producer satisfies
// this.
type ReminderPublisher interface {
	PublishReminderDue(ctx context.Context, inv *domain.ReviewInvitation) error
}

// Worker periodically sweeps the invitation table for due reminders.
type Worker struct {
	invitations repository.InvitationRepository
	producer    ReminderPublisher
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
}

// NewWorker creates a reminder worker sweeping at the given interval. A zero
// batch size falls back to DefaultBatchSize.
func NewWorker(
	invitations repository.InvitationRepository,
	producer ReminderPublisher,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Worker{
		invitations: invitations,
		producer:    producer,
		interval:    interval,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Run sweeps until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("reminder sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep dispatches one batch of due invitations. Only invitations whose
// reminder.due event was published get marked sent, so a failed publish is
// retried on the next sweep.
func (w *Worker) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := w.invitations.ListDue(ctx, now, w.batchSize)
	if err != nil {
		return fmt.Errorf("list due invitations: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	sent := make([]int64, 0, len(due))
	for i := range due {
		if err := w.producer.PublishReminderDue(ctx, &due[i]); err != nil {
			w.logger.ErrorContext(ctx, "failed to publish reminder.due event",
				slog.Int64("invitation_id", due[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent = append(sent, due[i].ID)
	}

	if len(sent) == 0 {
		return nil
	}

	if err := w.invitations.MarkSent(ctx, sent, now); err != nil {
		return fmt.Errorf("mark invitations sent: %w", err)
	}

	w.logger.InfoContext(ctx, "review reminders dispatched",
		slog.Int("due", len(due)),
		slog.Int("sent", len(sent)),
	)

	return nil
}
