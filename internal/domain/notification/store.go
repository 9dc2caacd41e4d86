package notification

import (
	"context"
	"time"
)

// UserStore reads user documents and applies the few writes the dispatcher owns.
// Implementations return a *common.NotFoundError for missing documents.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)

	// ClearPushToken removes the stored push token, but only while it still equals token.
	ClearPushToken(ctx context.Context, userID, token string) error

	// ListFavoritingUsers returns users whose favorites include the truck.
	ListFavoritingUsers(ctx context.Context, truckID string) ([]*User, error)
}

// TruckStore reads truck documents.
type TruckStore interface {
	GetTruck(ctx context.Context, id string) (*Truck, error)
}

// OrderStore reads and annotates order documents. Orders are never deleted here.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*Order, error)

	// SetEstimate merges the prep time estimate onto the order.
	SetEstimate(ctx context.Context, id string, minutes int, readyAt time.Time) error

	// UpdateStatus moves the order to a new status.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}

// DealStore reads posted deals.
type DealStore interface {
	GetDeal(ctx context.Context, id string) (*Deal, error)
}

// ReceiptStore is the append-only notification receipt log.
type ReceiptStore interface {
	// Add appends a receipt and assigns its ID.
	Add(ctx context.Context, r *Receipt) error

	// FindRecent returns the newest receipt for the triple created at or after since.
	// Returns nil, nil if there is none.
	FindRecent(ctx context.Context, userID, relatedID, notifType string, since time.Time) (*Receipt, error)

	// CountUnread counts receipts of the user with read == false.
	CountUnread(ctx context.Context, userID string) (int, error)

	// ListByUser returns the user's receipts, newest first.
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]*Receipt, error)

	// MarkRead flips read to true on the given receipts of the user.
	MarkRead(ctx context.Context, userID string, ids []string) error

	// PurgeOlderThan deletes at most limit receipts created before cutoff.
	PurgeOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
