package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names.
const (
	usersCollection         = "users"
	trucksCollection        = "trucks"
	ordersCollection        = "orders"
	dealsCollection         = "deals"
	notificationsCollection = "notifications"
)

var (
	_ notification.UserStore  = (*FirestoreStore)(nil)
	_ notification.TruckStore = (*FirestoreStore)(nil)
	_ notification.OrderStore = (*FirestoreStore)(nil)
	_ notification.DealStore  = (*FirestoreStore)(nil)
)

// FirestoreStore reads and annotates the app's documents in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed document store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// get loads one document into v, mapping a missing document to NotFoundError.
func (s *FirestoreStore) get(ctx context.Context, collection, id string, v any) error {
	if id == "" {
		return common.NewNotFoundError(collection, id)
	}

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return common.NewNotFoundError(collection, id)
		}
		return fmt.Errorf("fetching %s/%s: %w", collection, id, err)
	}

	if err := snap.DataTo(v); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", collection, id, err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*notification.User, error) {
	var u notification.User
	if err := s.get(ctx, usersCollection, id, &u); err != nil {
		return nil, err
	}
	u.ID = id
	return &u, nil
}

// ClearPushToken deletes the user's push token if it still equals token. A token
// refreshed by the app in the meantime is left in place.
func (s *FirestoreStore) ClearPushToken(ctx context.Context, userID, token string) error {
	ref := s.client.Collection(usersCollection).Doc(userID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}

		current, err := snap.DataAt("pushToken")
		if err != nil {
			// Field already gone
			return nil
		}
		if stored, ok := current.(string); !ok || stored != token {
			return nil
		}

		return tx.Update(ref, []firestore.Update{{Path: "pushToken", Value: firestore.Delete}})
	})
}

// ListFavoritingUsers returns users whose favorites include the truck.
func (s *FirestoreStore) ListFavoritingUsers(ctx context.Context, truckID string) ([]*notification.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("favoriteTrucks", "array-contains", truckID).
		Documents(ctx)
	defer iter.Stop()

	var users []*notification.User
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing users favoriting %s: %w", truckID, err)
		}

		var u notification.User
		if err := snap.DataTo(&u); err != nil {
			return nil, fmt.Errorf("decoding user %s: %w", snap.Ref.ID, err)
		}
		u.ID = snap.Ref.ID
		users = append(users, &u)
	}
	return users, nil
}

// GetTruck retrieves a truck by ID.
func (s *FirestoreStore) GetTruck(ctx context.Context, id string) (*notification.Truck, error) {
	var t notification.Truck
	if err := s.get(ctx, trucksCollection, id, &t); err != nil {
		return nil, err
	}
	t.ID = id
	return &t, nil
}

// GetOrder retrieves an order by ID.
func (s *FirestoreStore) GetOrder(ctx context.Context, id string) (*notification.Order, error) {
	var o notification.Order
	if err := s.get(ctx, ordersCollection, id, &o); err != nil {
		return nil, err
	}
	o.ID = id
	return &o, nil
}

// SetEstimate writes the prep estimate onto an existing order.
func (s *FirestoreStore) SetEstimate(ctx context.Context, id string, minutes int, readyAt time.Time) error {
	return s.updateOrder(ctx, id, []firestore.Update{
		{Path: "estimatedPrepTime", Value: minutes},
		{Path: "estimatedReadyTime", Value: readyAt},
	})
}

// UpdateStatus moves an existing order to a new status.
func (s *FirestoreStore) UpdateStatus(ctx context.Context, id string, st notification.OrderStatus) error {
	return s.updateOrder(ctx, id, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (s *FirestoreStore) updateOrder(ctx context.Context, id string, updates []firestore.Update) error {
	_, err := s.client.Collection(ordersCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return common.NewNotFoundError(ordersCollection, id)
		}
		return fmt.Errorf("updating order %s: %w", id, err)
	}
	return nil
}

// GetDeal retrieves a deal by ID.
func (s *FirestoreStore) GetDeal(ctx context.Context, id string) (*notification.Deal, error) {
	var d notification.Deal
	if err := s.get(ctx, dealsCollection, id, &d); err != nil {
		return nil, err
	}
	d.ID = id
	return &d, nil
}
