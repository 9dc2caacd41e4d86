package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const receiptsTable = "notification_receipts"

var _ notification.ReceiptStore = (*SupabaseReceiptStore)(nil)

// SupabaseReceiptStore implements ReceiptStore on a Supabase Postgres table.
type SupabaseReceiptStore struct {
	from func(table string) *postgrest.QueryBuilder
	now  func() time.Time
}

// NewSupabaseReceiptStore creates a new Supabase-backed receipt store.
func NewSupabaseReceiptStore(supabaseURL, serviceKey string) (*SupabaseReceiptStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseReceiptStore{from: client.From, now: time.Now}, nil
}

// receiptRow is the PostgREST representation of a receipt.
type receiptRow struct {
	ID              string                       `json:"id"`
	RecipientUserID string                       `json:"recipient_user_id"`
	RelatedID       string                       `json:"related_id"`
	Type            string                       `json:"type"`
	Status          string                       `json:"status"`
	Title           string                       `json:"title"`
	Body            string                       `json:"body"`
	Channels        []notification.ChannelResult `json:"channels"`
	Read            bool                         `json:"read"`
	CreatedAt       string                       `json:"created_at"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Add inserts a receipt. IDs are generated client-side.
func (s *SupabaseReceiptStore) Add(ctx context.Context, r *notification.Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	row := receiptRow{
		ID:              uuid.NewString(),
		RecipientUserID: r.RecipientUserID,
		RelatedID:       r.RelatedID,
		Type:            r.Type,
		Status:          r.Status,
		Title:           r.Title,
		Body:            r.Body,
		Channels:        r.Channels,
		Read:            r.Read,
		CreatedAt:       timestamp(r.CreatedAt),
	}
	if row.Channels == nil {
		row.Channels = []notification.ChannelResult{}
	}

	if _, _, err := s.from(receiptsTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("inserting notification receipt: %w", err)
	}
	r.ID = row.ID
	return nil
}

// FindRecent returns the newest matching receipt created at or after since, or nil.
func (s *SupabaseReceiptStore) FindRecent(ctx context.Context, userID, relatedID, notifType string, since time.Time) (*notification.Receipt, error) {
	data, _, err := s.from(receiptsTable).
		Select("*", "", false).
		Eq("recipient_user_id", userID).
		Eq("related_id", relatedID).
		Eq("type", notifType).
		Gte("created_at", timestamp(since)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("querying recent receipts: %w", err)
	}

	receipts, err := parseRows(data)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, nil
	}
	return receipts[0], nil
}

// CountUnread counts the user's unread receipts.
func (s *SupabaseReceiptStore) CountUnread(ctx context.Context, userID string) (int, error) {
	_, count, err := s.from(receiptsTable).
		Select("id", "exact", true).
		Eq("recipient_user_id", userID).
		Eq("read", "false").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("counting unread receipts: %w", err)
	}
	return int(count), nil
}

// ListByUser returns the user's receipts, newest first.
func (s *SupabaseReceiptStore) ListByUser(ctx context.Context, userID string, filter notification.ListFilter) ([]*notification.Receipt, error) {
	query := s.from(receiptsTable).
		Select("*", "", false).
		Eq("recipient_user_id", userID)
	if filter.UnreadOnly {
		query = query.Eq("read", "false")
	}
	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	query = query.Limit(filter.Limit, "")

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return parseRows(data)
}

// MarkRead flips read on the user's own receipts among ids.
func (s *SupabaseReceiptStore) MarkRead(ctx context.Context, userID string, ids []string) error {
	_, _, err := s.from(receiptsTable).
		Update(map[string]any{"read": true}, "minimal", "").
		Eq("recipient_user_id", userID).
		In("id", ids).
		Execute()
	if err != nil {
		return fmt.Errorf("marking receipts read: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes at most limit receipts created before cutoff, oldest first.
func (s *SupabaseReceiptStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	data, _, err := s.from(receiptsTable).
		Select("id", "", false).
		Lt("created_at", timestamp(cutoff)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("listing expired receipts: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("parsing expired receipts: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	if _, _, err := s.from(receiptsTable).Delete("minimal", "").In("id", ids).Execute(); err != nil {
		return 0, fmt.Errorf("deleting expired receipts: %w", err)
	}
	return len(ids), nil
}

func parseRows(data []byte) ([]*notification.Receipt, error) {
	var rows []receiptRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing receipts: %w", err)
	}

	receipts := make([]*notification.Receipt, len(rows))
	for i := range rows {
		receipts[i] = rowToReceipt(&rows[i])
	}
	return receipts, nil
}

// rowToReceipt converts a receiptRow to a Receipt.
func rowToReceipt(row *receiptRow) *notification.Receipt {
	r := &notification.Receipt{
		ID:              row.ID,
		RecipientUserID: row.RecipientUserID,
		RelatedID:       row.RelatedID,
		Type:            row.Type,
		Status:          row.Status,
		Title:           row.Title,
		Body:            row.Body,
		Channels:        row.Channels,
		Read:            row.Read,
	}
	if row.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
			r.CreatedAt = t
		}
	}
	return r
}
