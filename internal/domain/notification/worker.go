package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Worker runs dispatcher invocations picked up from the queue.
type Worker struct {
	dispatcher *Dispatcher
}

// NewWorker creates a new notification worker.
func NewWorker(dispatcher *Dispatcher) *Worker {
	return &Worker{dispatcher: dispatcher}
}

// Register installs the task handlers on an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeOrderStatus, w.ProcessTask)
	mux.HandleFunc(TaskTypeTruckNearby, w.ProcessTask)
	mux.HandleFunc(TaskTypeDealPosted, w.ProcessTask)
}

// ProcessTask runs one dispatch. Only a malformed payload is returned as an error;
// dispatch failures are logged and acknowledged so the trigger is never re-run.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var res Result
	switch task.Type() {
	case TaskTypeOrderStatus:
		var ev OrderStatusChange
		if err := parsePayload(task.Payload(), &ev); err != nil {
			return err
		}
		res = w.dispatcher.OrderStatusChanged(ctx, ev)
	case TaskTypeTruckNearby:
		var ev TruckMoved
		if err := parsePayload(task.Payload(), &ev); err != nil {
			return err
		}
		res = w.dispatcher.TruckNearby(ctx, ev)
	case TaskTypeDealPosted:
		var ev DealPosted
		if err := parsePayload(task.Payload(), &ev); err != nil {
			return err
		}
		res = w.dispatcher.DealPosted(ctx, ev)
	default:
		slog.Error("unknown task type", "type", task.Type())
		return nil
	}

	if res.Err != nil {
		slog.Error("dispatch failed",
			"task", task.Type(),
			"error", res.Err,
			"duration", time.Since(start),
		)
		return nil
	}

	slog.Info("dispatch complete",
		"task", task.Type(),
		"attempted", res.Attempted,
		"sent", res.Sent,
		"receipts", res.Receipts,
		"skipped", res.Skipped,
		"duration", time.Since(start),
	)
	return nil
}
