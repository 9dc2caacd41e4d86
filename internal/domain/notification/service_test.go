package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	ids   map[string]bool
	err   error
}

// Enqueue mimics asynq's TaskID handling: a reused ID is a conflict.
func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) error {
	if f.err != nil {
		return f.err
	}
	for _, o := range opts {
		if o.Type() != asynq.TaskIDOpt {
			continue
		}
		id := o.Value().(string)
		if f.ids[id] {
			return fmt.Errorf("enqueuing %s task: %w", task.Type(), asynq.ErrTaskIDConflict)
		}
		if f.ids == nil {
			f.ids = make(map[string]bool)
		}
		f.ids[id] = true
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func newTestService(orders *memOrders, receipts *memReceipts) (*Service, *fakeEnqueuer) {
	enq := &fakeEnqueuer{}
	trucks := memTrucks{"truck1": {ID: "truck1", AveragePrepTime: 15, CurrentOrders: 5}}
	return NewService(enq, orders, trucks, receipts), enq
}

func TestSubmitOrderStatus(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()

	resp, err := svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "o1", Before: StatusPreparing, After: StatusReady})
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeOrderStatus, enq.tasks[0].Type())

	var ev OrderStatusChange
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &ev))
	assert.Equal(t, OrderStatusChange{OrderID: "o1", Before: StatusPreparing, After: StatusReady}, ev)
}

func TestSubmitOrderStatusIgnoresNoOps(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()

	resp, err := svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "o1", Before: StatusReady, After: StatusReady})
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)

	resp, err = svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "o1", After: StatusPending})
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)

	assert.Empty(t, enq.tasks)
}

func TestSubmitOrderStatusValidation(t *testing.T) {
	svc, _ := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()

	_, err := svc.SubmitOrderStatus(ctx, OrderStatusChange{After: StatusReady})
	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "o1"})
	assert.ErrorAs(t, err, &validation)
}

func TestSubmitOrderStatusRejectsUnknownStatus(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()

	tests := []struct {
		name string
		ev   OrderStatusChange
	}{
		{"unknown after", OrderStatusChange{OrderID: "o1", Before: StatusReady, After: "refunded_typo"}},
		{"unknown before", OrderStatusChange{OrderID: "o1", Before: "in_oven", After: StatusReady}},
		{"unknown on create", OrderStatusChange{OrderID: "o1", After: "Ready"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.SubmitOrderStatus(ctx, tt.ev)
			assert.Nil(t, resp)
			var validation *common.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
	assert.Empty(t, enq.tasks)
}

func TestSubmitOrderStatusDeduplicatesTransition(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()
	ev := OrderStatusChange{OrderID: "o1", Before: StatusPreparing, After: StatusReady}

	resp, err := svc.SubmitOrderStatus(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)

	resp, err = svc.SubmitOrderStatus(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)
	assert.Equal(t, "already queued", resp.Reason)

	resp, err = svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "o1", Before: StatusReady, After: StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	assert.Len(t, enq.tasks, 2)
}

func TestSubmitEnqueueFailure(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	enq.err = errBoom

	_, err := svc.SubmitDeal(context.Background(), DealPosted{DealID: "d1"})
	assert.ErrorIs(t, err, errBoom)
}

func TestSubmitTruckLocation(t *testing.T) {
	svc, enq := newTestService(newMemOrders(), &memReceipts{})
	ctx := context.Background()

	_, err := svc.SubmitTruckLocation(ctx, TruckMoved{TruckID: "truck1", Location: GeoPoint{Lat: 91}})
	assert.Error(t, err)

	resp, err := svc.SubmitTruckLocation(ctx, TruckMoved{TruckID: "truck1", Location: truckSpot})
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeTruckNearby, enq.tasks[0].Type())
}

func TestPaymentSucceeded(t *testing.T) {
	orders := newMemOrders(order("cust1", StatusPending))
	svc, enq := newTestService(orders, &memReceipts{})
	ctx := context.Background()

	resp, err := svc.PaymentSucceeded(ctx, "order1abcdef")
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, StatusNewOrder, orders.orders["order1abcdef"].Status)
	require.Len(t, enq.tasks, 1)

	// Replayed webhook
	resp, err = svc.PaymentSucceeded(ctx, "order1abcdef")
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)
	assert.Len(t, enq.tasks, 1)
}

func TestPaymentSucceededAndDocumentTriggerQueueOnce(t *testing.T) {
	orders := newMemOrders(order("cust1", StatusPending))
	svc, enq := newTestService(orders, &memReceipts{})
	ctx := context.Background()

	resp, err := svc.PaymentSucceeded(ctx, "order1abcdef")
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)

	// The status write fires the order document trigger with the same transition.
	resp, err = svc.SubmitOrderStatus(ctx, OrderStatusChange{OrderID: "order1abcdef", Before: StatusPending, After: StatusNewOrder})
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)
	assert.Len(t, enq.tasks, 1)
}

func TestPaymentSucceededErrors(t *testing.T) {
	orders := newMemOrders(order("cust1", StatusPending))
	svc, _ := newTestService(orders, &memReceipts{})
	ctx := context.Background()

	_, err := svc.PaymentSucceeded(ctx, "")
	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.PaymentSucceeded(ctx, "missing")
	assert.True(t, common.IsNotFound(err))

	orders.updateErr = errBoom
	_, err = svc.PaymentSucceeded(ctx, "order1abcdef")
	assert.ErrorIs(t, err, errBoom)
}

func TestNotificationReadSide(t *testing.T) {
	receipts := &memReceipts{}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, receipts.Add(ctx, &Receipt{RecipientUserID: "u1", CreatedAt: time.Now()}))
	}
	require.NoError(t, receipts.Add(ctx, &Receipt{RecipientUserID: "u2"}))
	svc, _ := newTestService(newMemOrders(), receipts)

	list, err := svc.ListNotifications(ctx, "u1", ListFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 3)
	assert.Equal(t, "r3", list.Notifications[0].ID)
	assert.Equal(t, 3, list.Unread)

	require.NoError(t, svc.MarkRead(ctx, "u1", []string{"r1", "r2", "r4"}))
	n, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other users' receipts are untouched")

	err = svc.MarkRead(ctx, "u1", nil)
	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestEstimate(t *testing.T) {
	svc, _ := newTestService(newMemOrders(), &memReceipts{})
	svc.now = func() time.Time { return dispatchNow }
	items := []OrderItem{{Name: "Taco", Quantity: 4}}

	resp, err := svc.Estimate(context.Background(), &EstimateRequest{Items: items})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Minutes)

	resp, err = svc.Estimate(context.Background(), &EstimateRequest{TruckID: "truck1", Items: items})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Minutes)

	_, err = svc.Estimate(context.Background(), &EstimateRequest{TruckID: "ghost", Items: items})
	assert.True(t, common.IsNotFound(err))
}
