package notification

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// maxWebhookBody caps the Stripe webhook payload read.
const maxWebhookBody = 64 << 10

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	service      *Service
	stripeSecret string
}

// NewHandler creates a new notification handler. stripeSecret verifies webhook
// signatures; with an empty secret the Stripe route rejects every call.
func NewHandler(service *Service, stripeSecret string) *Handler {
	return &Handler{service: service, stripeSecret: stripeSecret}
}

// OrderTrigger handles POST /api/v1/triggers/orders
// Receives a Firestore document-write event for an order.
func (h *Handler) OrderTrigger(c *gin.Context) {
	var event FirestoreEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid trigger payload: "+err.Error())
		return
	}

	change, err := event.OrderStatusChange()
	if err != nil {
		common.HandleError(c, err)
		return
	}

	h.submitOrderStatus(c, change)
}

// OrderStatus handles POST /api/v1/events/order-status
func (h *Handler) OrderStatus(c *gin.Context) {
	var change OrderStatusChange
	if err := c.ShouldBindJSON(&change); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.submitOrderStatus(c, change)
}

func (h *Handler) submitOrderStatus(c *gin.Context, change OrderStatusChange) {
	resp, err := h.service.SubmitOrderStatus(c.Request.Context(), change)
	if err != nil {
		slog.Error("submit order status failed",
			"error", err,
			"order_id", change.OrderID,
			"after", change.After,
		)
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, resp)
}

// TruckLocation handles POST /api/v1/events/truck-location
func (h *Handler) TruckLocation(c *gin.Context) {
	var req struct {
		TruckID   string  `json:"truckId" binding:"required"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.SubmitTruckLocation(c.Request.Context(), TruckMoved{
		TruckID:  req.TruckID,
		Location: GeoPoint{Lat: req.Latitude, Lng: req.Longitude},
	})
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, resp)
}

// Deal handles POST /api/v1/events/deals
func (h *Handler) Deal(c *gin.Context) {
	var ev DealPosted
	if err := c.ShouldBindJSON(&ev); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.SubmitDeal(c.Request.Context(), ev)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusAccepted, resp)
}

// StripeWebhook handles POST /webhooks/stripe
// A succeeded payment intent carrying metadata.orderId announces the order.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		common.Error(c, http.StatusBadRequest, "reading webhook body: "+err.Error())
		return
	}

	if h.stripeSecret == "" {
		common.Error(c, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.stripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		common.Error(c, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		// Acknowledge but ignore unhandled event types
		slog.Info("ignoring stripe event", "type", event.Type)
		common.Success(c, http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid payment intent: "+err.Error())
		return
	}

	resp, err := h.service.PaymentSucceeded(c.Request.Context(), intent.Metadata["orderId"])
	if err != nil {
		slog.Error("payment webhook processing failed",
			"event_id", event.ID,
			"payment_intent", intent.ID,
			"error", err,
		)
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, resp)
}

// ListNotifications handles GET /api/v1/users/:id/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.service.ListNotifications(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, resp)
}

// UnreadCount handles GET /api/v1/users/:id/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, gin.H{"unread": n})
}

// MarkRead handles POST /api/v1/users/:id/notifications/read
func (h *Handler) MarkRead(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), req.IDs); err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, gin.H{"status": "read"})
}

// Estimate handles POST /api/v1/eta
func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Estimate(c.Request.Context(), &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, resp)
}

// RegisterRoutes registers the API-key protected routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/triggers/orders", h.OrderTrigger)
	rg.POST("/events/order-status", h.OrderStatus)
	rg.POST("/events/truck-location", h.TruckLocation)
	rg.POST("/events/deals", h.Deal)
	rg.GET("/users/:id/notifications", h.ListNotifications)
	rg.GET("/users/:id/notifications/unread-count", h.UnreadCount)
	rg.POST("/users/:id/notifications/read", h.MarkRead)
	rg.POST("/eta", h.Estimate)
}

// RegisterWebhooks registers routes authenticated by the caller's own signature.
func (h *Handler) RegisterWebhooks(rg *gin.RouterGroup) {
	rg.POST("/stripe", h.StripeWebhook)
}
