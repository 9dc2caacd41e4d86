package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"

	"github.com/hibiken/asynq"
)

// Enqueuer defines the contract for enqueuing dispatch tasks.
// This allows the service to be decoupled from the specific queue implementation.
// An enqueuer given an asynq.TaskID that is already queued or retained returns
// asynq.ErrTaskIDConflict.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) error
}

// dedupeWindow is how long a finished order status task keeps its ID reserved.
const dedupeWindow = 10 * time.Minute

// orderStatusTaskID names the one dispatch an order transition may produce. The
// payment webhook and the order document trigger both report pending→new_order,
// and only the first of them is queued.
func orderStatusTaskID(ev OrderStatusChange) string {
	return "order:" + ev.OrderID + ":" + string(ev.After)
}

// SubmitResponse is returned when an event trigger is accepted.
type SubmitResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// EstimateRequest asks for a pre-order prep time estimate.
type EstimateRequest struct {
	TruckID string      `json:"truckId"`
	Items   []OrderItem `json:"items" binding:"required,min=1"`
}

// EstimateResponse carries a smart estimate in minutes.
type EstimateResponse struct {
	Minutes int `json:"minutes"`
}

// Service validates event triggers, enqueues dispatch tasks and serves the receipt
// read side. In the async flow: validate → filter no-ops → enqueue.
type Service struct {
	enqueuer Enqueuer
	orders   OrderStore
	trucks   TruckStore
	receipts ReceiptStore
	now      func() time.Time
}

// NewService creates a new notification service.
func NewService(enqueuer Enqueuer, orders OrderStore, trucks TruckStore, receipts ReceiptStore) *Service {
	return &Service{
		enqueuer: enqueuer,
		orders:   orders,
		trucks:   trucks,
		receipts: receipts,
		now:      time.Now,
	}
}

func queued() *SubmitResponse { return &SubmitResponse{Status: "queued"} }

func ignored(reason string) *SubmitResponse {
	return &SubmitResponse{Status: "ignored", Reason: reason}
}

// SubmitOrderStatus enqueues a dispatch for an order transition. No-op transitions
// and transitions into pending are acknowledged without a task.
func (s *Service) SubmitOrderStatus(ctx context.Context, ev OrderStatusChange) (*SubmitResponse, error) {
	if strings.TrimSpace(ev.OrderID) == "" {
		return nil, common.NewValidationError("orderId is required")
	}
	if ev.After == "" {
		return nil, common.NewValidationError("after status is required")
	}
	if !IsValidStatus(ev.After) {
		return nil, common.NewValidationError(fmt.Sprintf("unknown after status %q", ev.After))
	}
	if ev.Before != "" && !IsValidStatus(ev.Before) {
		return nil, common.NewValidationError(fmt.Sprintf("unknown before status %q", ev.Before))
	}
	if ev.Before == ev.After {
		return ignored("status unchanged"), nil
	}
	if ev.After == StatusPending {
		return ignored("pending is not announced"), nil
	}

	task, err := NewOrderStatusTask(ev)
	if err != nil {
		return nil, err
	}
	err = s.enqueuer.Enqueue(task,
		asynq.TaskID(orderStatusTaskID(ev)),
		asynq.Retention(dedupeWindow),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("order status dispatch already queued", "order_id", ev.OrderID, "after", ev.After)
		return ignored("already queued"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("enqueuing order status dispatch: %w", err)
	}

	slog.Info("order status dispatch enqueued",
		"order_id", ev.OrderID,
		"before", ev.Before,
		"after", ev.After,
	)
	return queued(), nil
}

// SubmitTruckLocation enqueues a proximity dispatch for a truck.
func (s *Service) SubmitTruckLocation(ctx context.Context, ev TruckMoved) (*SubmitResponse, error) {
	if strings.TrimSpace(ev.TruckID) == "" {
		return nil, common.NewValidationError("truckId is required")
	}
	if ev.Location.Lat < -90 || ev.Location.Lat > 90 || ev.Location.Lng < -180 || ev.Location.Lng > 180 {
		return nil, common.NewValidationError("location is out of range")
	}

	task, err := NewTruckNearbyTask(ev)
	if err != nil {
		return nil, err
	}
	if err := s.enqueuer.Enqueue(task); err != nil {
		return nil, fmt.Errorf("enqueuing proximity dispatch: %w", err)
	}
	return queued(), nil
}

// SubmitDeal enqueues a dispatch for a posted deal.
func (s *Service) SubmitDeal(ctx context.Context, ev DealPosted) (*SubmitResponse, error) {
	if strings.TrimSpace(ev.DealID) == "" {
		return nil, common.NewValidationError("dealId is required")
	}

	task, err := NewDealPostedTask(ev)
	if err != nil {
		return nil, err
	}
	if err := s.enqueuer.Enqueue(task); err != nil {
		return nil, fmt.Errorf("enqueuing deal dispatch: %w", err)
	}
	return queued(), nil
}

// PaymentSucceeded moves a pending order to new_order and announces it.
// Orders past pending are left alone, so a replayed webhook does nothing.
func (s *Service) PaymentSucceeded(ctx context.Context, orderID string) (*SubmitResponse, error) {
	if orderID == "" {
		return nil, common.NewValidationError("payment has no orderId metadata")
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetching order: %w", err)
	}
	if order.Status != StatusPending {
		return ignored("order is " + string(order.Status)), nil
	}

	if err := s.orders.UpdateStatus(ctx, orderID, StatusNewOrder); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	return s.SubmitOrderStatus(ctx, OrderStatusChange{
		OrderID: orderID,
		Before:  StatusPending,
		After:   StatusNewOrder,
	})
}

// ListNotifications returns a user's receipts and unread count.
func (s *Service) ListNotifications(ctx context.Context, userID string, filter ListFilter) (*ListResponse, error) {
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	receipts, err := s.receipts.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	unread, err := s.receipts.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread notifications: %w", err)
	}

	return &ListResponse{Notifications: receipts, Unread: unread}, nil
}

// UnreadCount returns the badge count for a user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.receipts.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return BadgeCount(n), nil
}

// MarkRead flips the given receipts to read.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return common.NewValidationError("ids is required")
	}
	if err := s.receipts.MarkRead(ctx, userID, ids); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// Estimate returns the smart prep time estimate shown before ordering.
func (s *Service) Estimate(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	var truck *Truck
	if req.TruckID != "" {
		t, err := s.trucks.GetTruck(ctx, req.TruckID)
		if err != nil {
			return nil, fmt.Errorf("fetching truck: %w", err)
		}
		truck = t
	}
	return &EstimateResponse{Minutes: EstimatePrepTime(req.Items, truck, s.now(), SmartBounds)}, nil
}
