package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
)

var _ notification.ReceiptStore = (*FirestoreReceiptStore)(nil)

// FirestoreReceiptStore keeps notification receipts in the notifications collection.
// FindRecent needs a composite index on (recipientUserId, relatedId, type, createdAt desc).
type FirestoreReceiptStore struct {
	client *firestore.Client
}

// NewFirestoreReceiptStore creates a new Firestore-backed receipt store.
func NewFirestoreReceiptStore(client *firestore.Client) *FirestoreReceiptStore {
	return &FirestoreReceiptStore{client: client}
}

func (s *FirestoreReceiptStore) collection() *firestore.CollectionRef {
	return s.client.Collection(notificationsCollection)
}

// Add appends a receipt and assigns its ID.
func (s *FirestoreReceiptStore) Add(ctx context.Context, r *notification.Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	ref, _, err := s.collection().Add(ctx, r)
	if err != nil {
		return fmt.Errorf("adding notification receipt: %w", err)
	}
	r.ID = ref.ID
	return nil
}

// FindRecent returns the newest matching receipt created at or after since, or nil.
func (s *FirestoreReceiptStore) FindRecent(ctx context.Context, userID, relatedID, notifType string, since time.Time) (*notification.Receipt, error) {
	docs, err := s.collection().
		Where("recipientUserId", "==", userID).
		Where("relatedId", "==", relatedID).
		Where("type", "==", notifType).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying recent receipts: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeReceipt(docs[0])
}

// CountUnread counts the user's unread receipts with a server-side aggregation.
func (s *FirestoreReceiptStore) CountUnread(ctx context.Context, userID string) (int, error) {
	q := s.collection().
		Where("recipientUserId", "==", userID).
		Where("read", "==", false)
	res, err := q.NewAggregationQuery().WithCount("unread").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting unread receipts: %w", err)
	}

	v, ok := res["unread"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected aggregation result %T", res["unread"])
	}
	return int(v.GetIntegerValue()), nil
}

// ListByUser returns the user's receipts, newest first.
func (s *FirestoreReceiptStore) ListByUser(ctx context.Context, userID string, filter notification.ListFilter) ([]*notification.Receipt, error) {
	q := s.collection().Where("recipientUserId", "==", userID)
	if filter.UnreadOnly {
		q = q.Where("read", "==", false)
	}
	q = q.OrderBy("createdAt", firestore.Desc).Limit(filter.Limit)

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	receipts := make([]*notification.Receipt, 0, len(docs))
	for _, doc := range docs {
		r, err := decodeReceipt(doc)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// MarkRead flips read on the user's own receipts among ids. Unknown ids and other
// users' receipts are ignored.
func (s *FirestoreReceiptStore) MarkRead(ctx context.Context, userID string, ids []string) error {
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.collection().Doc(id)
	}

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return fmt.Errorf("loading receipts: %w", err)
		}

		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			owner, err := snap.DataAt("recipientUserId")
			if err != nil || owner != userID {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
		}
		return nil
	})
}

// PurgeOlderThan deletes at most limit receipts created before cutoff.
func (s *FirestoreReceiptStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	iter := s.collection().
		Where("createdAt", "<", cutoff).
		OrderBy("createdAt", firestore.Asc).
		Limit(limit).
		Select().
		Documents(ctx)
	defer iter.Stop()

	bw := s.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("listing expired receipts: %w", err)
		}
		job, err := bw.Delete(snap.Ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("queueing receipt delete: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	var firstErr error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	if firstErr != nil {
		return deleted, fmt.Errorf("deleting expired receipts: %w", firstErr)
	}
	return deleted, nil
}

func decodeReceipt(doc *firestore.DocumentSnapshot) (*notification.Receipt, error) {
	var r notification.Receipt
	if err := doc.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decoding receipt %s: %w", doc.Ref.ID, err)
	}
	r.ID = doc.Ref.ID
	return &r, nil
}
