package notification

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task types for dispatcher invocations.
const (
	TaskTypeOrderStatus = "dispatch:order_status"
	TaskTypeTruckNearby = "dispatch:truck_nearby"
	TaskTypeDealPosted  = "dispatch:deal_posted"
)

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(taskType, data), nil
}

// NewOrderStatusTask creates a task for an order status transition.
func NewOrderStatusTask(ev OrderStatusChange) (*asynq.Task, error) {
	return newTask(TaskTypeOrderStatus, ev)
}

// NewTruckNearbyTask creates a task for a truck location update.
func NewTruckNearbyTask(ev TruckMoved) (*asynq.Task, error) {
	return newTask(TaskTypeTruckNearby, ev)
}

// NewDealPostedTask creates a task for a newly posted deal.
func NewDealPostedTask(ev DealPosted) (*asynq.Task, error) {
	return newTask(TaskTypeDealPosted, ev)
}

// parsePayload deserializes a task payload into v. A bad payload is never retried.
func parsePayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling task payload: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
