package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-apotek/internal/events"
)

// TaskClient is the subset of *asynq.Client used to publish tasks.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes background tasks.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	// Unique coalesces warm-ups requested within the window into one task.
	Unique time.Duration
}

// EnqueueWarm schedules an analytics warm-up. A warm-up already pending in the
// uniqueness window counts as success.
func (e Enqueuer) EnqueueWarm(ctx context.Context, p WarmPayload) error {
	if e.Client == nil {
		return errors.New("queue: task client not configured")
	}
	task, err := NewWarmTask(p)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(e.maxRetry())}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.Unique > 0 {
		opts = append(opts, asynq.Unique(e.Unique))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			observeEnqueue(TypeAnalyticsWarm, "duplicate")
			return nil
		}
		observeEnqueue(TypeAnalyticsWarm, "error")
		return err
	}
	observeEnqueue(TypeAnalyticsWarm, "ok")
	return nil
}

func (e Enqueuer) maxRetry() int {
	if e.MaxRetry <= 0 {
		return 5
	}
	return e.MaxRetry
}

// Notifier enqueues a warm-up for every committed bill.
func (e Enqueuer) Notifier() events.Notifier {
	return events.NotifierFunc(func(ctx context.Context, ev events.Event) error {
		if ev.Topic != events.TopicBillCommitted {
			return nil
		}
		return e.EnqueueWarm(ctx, WarmPayload{BillID: ev.AggregateID, Topic: ev.Topic})
	})
}
