package store

import (
	"fmt"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"cloud.google.com/go/firestore"
)

// Receipt store drivers.
const (
	DriverFirestore = "firestore"
	DriverSupabase  = "supabase"
)

// NewReceiptStore opens the receipt store selected by driver.
func NewReceiptStore(driver string, client *firestore.Client, supabaseURL, supabaseKey string) (notification.ReceiptStore, error) {
	switch driver {
	case DriverFirestore, "":
		return NewFirestoreReceiptStore(client), nil
	case DriverSupabase:
		s, err := NewSupabaseReceiptStore(supabaseURL, supabaseKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown receipts driver %q", driver)
	}
}
