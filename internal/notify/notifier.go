// Package notify fans successful submissions out to the operations webhook.
// The API enqueues an asynq task; the worker signs and delivers it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/byteaxis/byteaxis-api/internal/obs"
)

// TaskSubmissionCreated is the asynq task type for new submissions.
const TaskSubmissionCreated = "submission:created"

// Event describes a stored submission.
type Event struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	ProjectName string    `json:"projectName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Total       float64   `json:"total,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Notifier publishes submission events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop drops every event. It is used when no queue is configured.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier enqueues events as asynq tasks.
type QueueNotifier struct {
	client   taskEnqueuer
	maxRetry int
	timeout  time.Duration
}

// NewQueueNotifier wraps an asynq client.
func NewQueueNotifier(client *asynq.Client, maxRetry int) *QueueNotifier {
	return newQueueNotifier(client, maxRetry)
}

func newQueueNotifier(client taskEnqueuer, maxRetry int) *QueueNotifier {
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &QueueNotifier{client: client, maxRetry: maxRetry, timeout: 30 * time.Second}
}

// Notify enqueues ev. The document id doubles as the task id, so a repeated
// submission of the same form does not notify twice.
func (n *QueueNotifier) Notify(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return errors.New("notify: event id is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	task := asynq.NewTask(TaskSubmissionCreated, payload)
	_, err = n.client.EnqueueContext(ctx, task,
		asynq.TaskID(ev.ID),
		asynq.MaxRetry(n.maxRetry),
		asynq.Timeout(n.timeout),
	)
	switch {
	case err == nil:
		obs.CountNotification("enqueue", "success")
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict):
		obs.CountNotification("enqueue", "duplicate")
		return nil
	default:
		obs.CountNotification("enqueue", "error")
		return fmt.Errorf("notify: enqueue: %w", err)
	}
}
