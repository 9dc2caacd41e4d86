package notification

import (
	"strings"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
)

// FirestoreEvent is the document-write payload delivered by a Firestore trigger.
// OldValue is empty on create; Value is empty on delete.
type FirestoreEvent struct {
	OldValue   FirestoreDocument `json:"oldValue"`
	Value      FirestoreDocument `json:"value"`
	UpdateMask struct {
		FieldPaths []string `json:"fieldPaths"`
	} `json:"updateMask"`
}

// FirestoreDocument is a document snapshot in the REST value encoding.
type FirestoreDocument struct {
	Name   string                    `json:"name"`
	Fields map[string]FirestoreValue `json:"fields"`
}

// FirestoreValue holds the typed value of one field. Only strings are read here.
type FirestoreValue struct {
	StringValue *string `json:"stringValue,omitempty"`
}

func (d *FirestoreDocument) stringField(name string) string {
	v, ok := d.Fields[name]
	if !ok || v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

// documentID is the last segment of a document resource name.
func documentID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// OrderStatusChange reads the before and after status of an order write.
func (e *FirestoreEvent) OrderStatusChange() (OrderStatusChange, error) {
	if e.Value.Name == "" {
		return OrderStatusChange{}, common.NewValidationError("order document was deleted")
	}

	id := documentID(e.Value.Name)
	if id == "" {
		return OrderStatusChange{}, common.NewValidationError("document name has no id: " + e.Value.Name)
	}

	return OrderStatusChange{
		OrderID: id,
		Before:  OrderStatus(e.OldValue.stringField("status")),
		After:   OrderStatus(e.Value.stringField("status")),
	}, nil
}
