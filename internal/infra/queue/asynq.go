package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/hibiken/asynq"
)

var _ notification.Enqueuer = (*Enqueuer)(nil)

// taskTimeout bounds one dispatch, including all of its channel sends.
const taskTimeout = 2 * time.Minute

// RedisOpt builds the asynq connection option.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}

// Enqueuer puts dispatch tasks on a named queue. Every task runs at most once:
// a failed dispatch is logged and dropped, never re-run.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

// NewEnqueuer creates a new asynq-backed enqueuer.
func NewEnqueuer(opt asynq.RedisClientOpt, queue string) *Enqueuer {
	return &Enqueuer{
		client: asynq.NewClient(opt),
		queue:  queue,
	}
}

// Enqueue submits a dispatch task. opts are applied after the queue defaults, so a
// caller may add a TaskID or Retention. A duplicate TaskID comes back wrapping
// asynq.ErrTaskIDConflict.
func (e *Enqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) error {
	all := append([]asynq.Option{
		asynq.MaxRetry(0),
		asynq.Queue(e.queue),
		asynq.Timeout(taskTimeout),
	}, opts...)

	info, err := e.client.Enqueue(task, all...)
	if err != nil {
		return fmt.Errorf("enqueuing %s task: %w", task.Type(), err)
	}

	slog.Debug("task enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

// Close closes the underlying Redis connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// NewServer creates a new asynq server processing the dispatch queue.
func NewServer(opt asynq.RedisClientOpt, queue string, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue:     10, // priority weight
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			slog.Error("task failed", "type", task.Type(), "error", err)
		}),
		ShutdownTimeout: 30 * time.Second,
	})
}
