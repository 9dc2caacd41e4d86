package notification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
)

func boolPtr(v bool) *bool { return &v }

type memUsers struct {
	mu      sync.Mutex
	users   map[string]*User
	err     error
	cleared []string
}

func newMemUsers(users ...*User) *memUsers {
	m := &memUsers{users: make(map[string]*User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, common.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ClearPushToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok && u.PushToken == token {
		u.PushToken = ""
	}
	m.cleared = append(m.cleared, userID)
	return nil
}

func (m *memUsers) ListFavoritingUsers(_ context.Context, truckID string) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*User
	for _, u := range m.users {
		if slices.Contains(u.FavoriteTrucks, truckID) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUsers) token(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].PushToken
}

type memTrucks map[string]*Truck

func (m memTrucks) GetTruck(_ context.Context, id string) (*Truck, error) {
	t, ok := m[id]
	if !ok {
		return nil, common.NewNotFoundError("truck", id)
	}
	return t, nil
}

type estimate struct {
	minutes int
	readyAt time.Time
}

type memOrders struct {
	mu        sync.Mutex
	orders    map[string]*Order
	estimates map[string]estimate
	updateErr error
}

func newMemOrders(orders ...*Order) *memOrders {
	m := &memOrders{orders: make(map[string]*Order), estimates: make(map[string]estimate)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) GetOrder(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, common.NewNotFoundError("order", id)
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) SetEstimate(_ context.Context, id string, minutes int, readyAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimates[id] = estimate{minutes: minutes, readyAt: readyAt}
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return common.NewNotFoundError("order", id)
	}
	o.Status = status
	return nil
}

type memDeals map[string]*Deal

func (m memDeals) GetDeal(_ context.Context, id string) (*Deal, error) {
	d, ok := m[id]
	if !ok {
		return nil, common.NewNotFoundError("deal", id)
	}
	return d, nil
}

type memReceipts struct {
	mu       sync.Mutex
	receipts []*Receipt
	findErr  error
	addErr   error
	countErr error
	seq      int
}

func (m *memReceipts) Add(_ context.Context, r *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.seq++
	r.ID = fmt.Sprintf("r%d", m.seq)
	m.receipts = append(m.receipts, r)
	return nil
}

func (m *memReceipts) FindRecent(_ context.Context, userID, relatedID, notifType string, since time.Time) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var found *Receipt
	for _, r := range m.receipts {
		if r.RecipientUserID == userID && r.RelatedID == relatedID && r.Type == notifType && !r.CreatedAt.Before(since) {
			if found == nil || r.CreatedAt.After(found.CreatedAt) {
				found = r
			}
		}
	}
	return found, nil
}

func (m *memReceipts) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, r := range m.receipts {
		if r.RecipientUserID == userID && !r.Read {
			n++
		}
	}
	return n, nil
}

func (m *memReceipts) ListByUser(_ context.Context, userID string, filter ListFilter) ([]*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Receipt
	for i := len(m.receipts) - 1; i >= 0; i-- {
		r := m.receipts[i]
		if r.RecipientUserID != userID || (filter.UnreadOnly && r.Read) {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memReceipts) MarkRead(_ context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.receipts {
		if r.RecipientUserID == userID && slices.Contains(ids, r.ID) {
			r.Read = true
		}
	}
	return nil
}

func (m *memReceipts) PurgeOlderThan(_ context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.receipts[:0]
	n := 0
	for _, r := range m.receipts {
		if n < limit && r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.receipts = kept
	return n, nil
}

func (m *memReceipts) forUser(userID string) []*Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Receipt
	for _, r := range m.receipts {
		if r.RecipientUserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memReceipts) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receipts)
}

type pushCall struct {
	dest PushDestination
	msg  PushMessage
}

type fakePush struct {
	mu      sync.Mutex
	calls   []pushCall
	err     error
	failFor map[string]error // by token
	panics  bool
	block   bool
}

func (f *fakePush) SendPush(ctx context.Context, dest PushDestination, msg *PushMessage) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pushCall{dest: dest, msg: *msg})
	f.mu.Unlock()
	if f.panics {
		panic("push client exploded")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := f.failFor[dest.Token]; err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return "push-1", nil
}

func (f *fakePush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSMS struct {
	mu    sync.Mutex
	calls []SMSMessage
	err   error
}

func (f *fakeSMS) SendSMS(_ context.Context, msg *SMSMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *msg)
	if f.err != nil {
		return "", f.err
	}
	return "SM1", nil
}

func (f *fakeSMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEmail struct {
	mu      sync.Mutex
	calls   []EmailMessage
	err     error
	failFor map[string]error // by address
}

func (f *fakeEmail) SendEmail(_ context.Context, msg *EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *msg)
	if err := f.failFor[msg.To]; err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return "email-1", nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) {
	return f.allow, f.err
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) RenderEmail(v *EmailView) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "<h1>" + v.Heading + "</h1>", nil
}

var errBoom = errors.New("boom")
