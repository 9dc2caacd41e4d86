package notification

import "time"

// OrderStatus is a step in the order lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusNewOrder  OrderStatus = "new_order"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// validStatuses is the set of all recognized order statuses.
var validStatuses = map[OrderStatus]bool{
	StatusPending:   true,
	StatusNewOrder:  true,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// IsValidStatus checks whether an order status is recognized.
func IsValidStatus(s OrderStatus) bool {
	return validStatuses[s]
}

// GuestCustomerID marks orders placed without an account.
const GuestCustomerID = "guest"

// Role determines which templates apply to a user.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleOwner     Role = "owner"
	RoleOrganizer Role = "organizer"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `firestore:"latitude" json:"latitude"`
	Lng float64 `firestore:"longitude" json:"longitude"`
}

// Preferences holds the user's opt-in flags. A nil flag means the user never set it.
type Preferences struct {
	Push           *bool `firestore:"pushNotifications,omitempty" json:"pushNotifications,omitempty"`
	Email          *bool `firestore:"emailNotifications,omitempty" json:"emailNotifications,omitempty"`
	SMS            *bool `firestore:"smsNotifications,omitempty" json:"smsNotifications,omitempty"`
	FavoriteNearby *bool `firestore:"favoriteNearby,omitempty" json:"favoriteNearby,omitempty"`
	Deals          *bool `firestore:"deals,omitempty" json:"deals,omitempty"`
	WeeklyDigest   *bool `firestore:"weeklyDigest,omitempty" json:"weeklyDigest,omitempty"`
}

// User is the stored account document.
type User struct {
	ID             string      `firestore:"-" json:"id"`
	DisplayName    string      `firestore:"displayName" json:"displayName"`
	Email          string      `firestore:"email" json:"email,omitempty"`
	Phone          string      `firestore:"phone" json:"phone,omitempty"`
	PushToken      string      `firestore:"pushToken" json:"-"`
	Role           Role        `firestore:"role" json:"role"`
	PhoneVerified  bool        `firestore:"phoneVerified" json:"phoneVerified"`
	EmailVerified  bool        `firestore:"emailVerified" json:"emailVerified"`
	Preferences    Preferences `firestore:"notificationPreferences" json:"notificationPreferences"`
	FavoriteTrucks []string    `firestore:"favoriteTrucks" json:"favoriteTrucks,omitempty"`
	LastLocation   *GeoPoint   `firestore:"lastLocation" json:"lastLocation,omitempty"`
}

// Truck is the stored food truck document.
type Truck struct {
	ID              string    `firestore:"-" json:"id"`
	OwnerID         string    `firestore:"ownerId" json:"ownerId"`
	Name            string    `firestore:"truckName" json:"truckName"`
	AveragePrepTime float64   `firestore:"averagePrepTime" json:"averagePrepTime,omitempty"`
	CurrentOrders   int       `firestore:"currentOrders" json:"currentOrders,omitempty"`
	Location        *GeoPoint `firestore:"location" json:"location,omitempty"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	Name                string `firestore:"name" json:"name"`
	Quantity            int    `firestore:"quantity" json:"quantity"`
	Category            string `firestore:"category" json:"category,omitempty"`
	SpecialInstructions string `firestore:"specialInstructions" json:"specialInstructions,omitempty"`
}

// Order is the stored order document. TotalAmount is in cents.
type Order struct {
	ID                 string      `firestore:"-" json:"id"`
	CustomerID         string      `firestore:"customerId" json:"customerId"`
	CustomerName       string      `firestore:"customerName" json:"customerName,omitempty"`
	CustomerEmail      string      `firestore:"customerEmail" json:"customerEmail,omitempty"`
	TruckID            string      `firestore:"truckId" json:"truckId"`
	TruckName          string      `firestore:"truckName" json:"truckName,omitempty"`
	Status             OrderStatus `firestore:"status" json:"status"`
	Items              []OrderItem `firestore:"items" json:"items"`
	TotalAmount        int64       `firestore:"totalAmount" json:"totalAmount"`
	EstimatedPrepTime  int         `firestore:"estimatedPrepTime" json:"estimatedPrepTime,omitempty"`
	EstimatedReadyTime *time.Time  `firestore:"estimatedReadyTime" json:"estimatedReadyTime,omitempty"`
	CreatedAt          time.Time   `firestore:"createdAt" json:"createdAt"`
}

// IsGuest reports whether the order has no account to notify.
func (o *Order) IsGuest() bool {
	return o.CustomerID == "" || o.CustomerID == GuestCustomerID
}

// Deal is a promotion posted by a truck.
type Deal struct {
	ID          string     `firestore:"-" json:"id"`
	TruckID     string     `firestore:"truckId" json:"truckId"`
	Title       string     `firestore:"title" json:"title"`
	Description string     `firestore:"description" json:"description,omitempty"`
	ExpiresAt   *time.Time `firestore:"expiresAt" json:"expiresAt,omitempty"`
}

// ChannelResult is the uniform outcome of one channel send.
type ChannelResult struct {
	Success    bool    `firestore:"success" json:"success"`
	Method     Channel `firestore:"method" json:"method"`
	MessageID  string  `firestore:"messageId,omitempty" json:"messageId,omitempty"`
	Error      string  `firestore:"error,omitempty" json:"error,omitempty"`
	PruneToken bool    `firestore:"-" json:"-"`
}

// Receipt records one dispatch attempt for one recipient.
type Receipt struct {
	ID              string          `firestore:"-" json:"id"`
	RecipientUserID string          `firestore:"recipientUserId" json:"recipientUserId"`
	RelatedID       string          `firestore:"relatedId" json:"relatedId,omitempty"`
	Type            string          `firestore:"type" json:"type"`
	Status          string          `firestore:"status" json:"status"`
	Title           string          `firestore:"title" json:"title"`
	Body            string          `firestore:"body" json:"body"`
	Channels        []ChannelResult `firestore:"channels" json:"channels"`
	Read            bool            `firestore:"read" json:"read"`
	CreatedAt       time.Time       `firestore:"createdAt" json:"createdAt"`
}

// Succeeded counts the successful channel sends on the receipt.
func (r *Receipt) Succeeded() int {
	n := 0
	for _, c := range r.Channels {
		if c.Success {
			n++
		}
	}
	return n
}

// ListFilter defines pagination options for listing a user's receipts.
type ListFilter struct {
	Limit      int  `form:"limit"`
	UnreadOnly bool `form:"unread_only"`
}

// ListResponse wraps a list of receipts.
type ListResponse struct {
	Notifications []*Receipt `json:"notifications"`
	Unread        int        `json:"unread"`
}
