package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// OrderStatusChange is a transition observed on an order document.
type OrderStatusChange struct {
	OrderID string      `json:"orderId"`
	Before  OrderStatus `json:"before"`
	After   OrderStatus `json:"after"`
}

// TruckMoved is a truck location update.
type TruckMoved struct {
	TruckID  string   `json:"truckId"`
	Location GeoPoint `json:"location"`
}

// DealPosted announces a new deal by id.
type DealPosted struct {
	DealID string `json:"dealId"`
}

// Result summarizes one dispatch. Sent is advisory and only used for logging.
type Result struct {
	Attempted int
	Sent      int
	Receipts  int
	Skipped   string
	Err       error
}

func (r *Result) add(o Result) {
	r.Attempted += o.Attempted
	r.Sent += o.Sent
	r.Receipts += o.Receipts
}

// Stores groups the document collections the dispatcher reads and annotates.
type Stores struct {
	Users    UserStore
	Trucks   TruckStore
	Orders   OrderStore
	Deals    DealStore
	Receipts ReceiptStore
}

// DispatcherConfig holds the tunables of a dispatcher.
type DispatcherConfig struct {
	Policies             Policies
	ProximityRadiusMiles float64

	// AmbientConcurrency bounds parallel recipients for proximity and deal fan-out.
	AmbientConcurrency int

	// PruneTimeout bounds the background clear of an invalid push token.
	PruneTimeout time.Duration
}

// Dispatcher decides who to notify about a domain event, and on which channels,
// and records a receipt per recipient.
type Dispatcher struct {
	stores    Stores
	resolver  *Resolver
	gate      *Gate
	formatter *Formatter
	channels  *Channels
	limiter   RecipientRateLimiter
	config    DispatcherConfig
	now       func() time.Time
	bg        sync.WaitGroup
}

// NewDispatcher creates a new dispatcher. limiter may be nil.
func NewDispatcher(stores Stores, formatter *Formatter, channels *Channels, limiter RecipientRateLimiter, cfg DispatcherConfig) *Dispatcher {
	if cfg.Policies == (Policies{}) {
		cfg.Policies = DefaultPolicies()
	}
	if cfg.ProximityRadiusMiles <= 0 {
		cfg.ProximityRadiusMiles = 1.0
	}
	if cfg.AmbientConcurrency <= 0 {
		cfg.AmbientConcurrency = 8
	}
	if cfg.PruneTimeout <= 0 {
		cfg.PruneTimeout = 10 * time.Second
	}

	return &Dispatcher{
		stores:    stores,
		resolver:  NewResolver(stores.Users),
		gate:      NewGate(stores.Receipts),
		formatter: formatter,
		channels:  channels,
		limiter:   limiter,
		config:    cfg,
		now:       time.Now,
	}
}

// Wait blocks until background token pruning has finished.
func (d *Dispatcher) Wait() {
	d.bg.Wait()
}

// delivery is one (recipient, topic) pair to notify.
type delivery struct {
	userID    string
	user      *User
	relatedID string
	notifType string
	status    string
	event     Event
	data      FormatData
	policy    Policy
	topic     Topic
	ambient   bool
	replyTo   string
}

// OrderStatusChanged notifies the parties of an order about a status transition.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, ev OrderStatusChange) Result {
	if ev.Before == ev.After {
		return Result{Skipped: "status unchanged"}
	}
	if ev.After == StatusPending {
		return Result{Skipped: "pending is not announced"}
	}

	order, err := d.stores.Orders.GetOrder(ctx, ev.OrderID)
	if err != nil {
		slog.Error("dispatch aborted: order not loaded", "order_id", ev.OrderID, "error", err)
		return Result{Err: fmt.Errorf("loading order %s: %w", ev.OrderID, err)}
	}

	truck, err := d.stores.Trucks.GetTruck(ctx, order.TruckID)
	if err != nil {
		slog.Warn("truck not loaded", "truck_id", order.TruckID, "order_id", order.ID, "error", err)
		truck = nil
	}

	data := FormatData{
		OrderID:      order.ID,
		TruckName:    order.TruckName,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount,
		Items:        order.Items,
	}
	if truck != nil && truck.Name != "" {
		data.TruckName = truck.Name
	}

	if ev.After == StatusNewOrder {
		return d.newOrder(ctx, order, truck, data)
	}

	// Guest orders still get an estimate for the in-app order view.
	if ev.After == StatusConfirmed || ev.After == StatusPreparing {
		now := d.now()
		minutes := EstimatePrepTime(order.Items, truck, now, StandardBounds)
		readyAt := now.Add(time.Duration(minutes) * time.Minute)
		if err := d.stores.Orders.SetEstimate(ctx, order.ID, minutes, readyAt); err != nil {
			slog.Error("failed to persist prep estimate", "order_id", order.ID, "error", err)
		}
		data.ETAMinutes = minutes
		data.ReadyAt = &readyAt
	}

	if order.IsGuest() {
		return Result{Skipped: "guest order"}
	}

	return d.notify(ctx, delivery{
		userID:    order.CustomerID,
		relatedID: order.ID,
		notifType: "order_" + string(ev.After),
		status:    string(ev.After),
		event:     Event(ev.After),
		data:      data,
		policy:    d.config.Policies.OrderStatus,
	})
}

// newOrder notifies the truck owner and the customer independently.
func (d *Dispatcher) newOrder(ctx context.Context, order *Order, truck *Truck, data FormatData) Result {
	var jobs []delivery

	if truck != nil && truck.OwnerID != "" {
		jobs = append(jobs, delivery{
			userID:    truck.OwnerID,
			relatedID: order.ID,
			notifType: string(EventNewOrder),
			status:    string(StatusNewOrder),
			event:     EventNewOrder,
			data:      data,
			policy:    d.config.Policies.OrderStatus,
			replyTo:   order.CustomerEmail,
		})
	} else {
		slog.Error("new order has no truck owner to notify", "order_id", order.ID, "truck_id", order.TruckID)
	}

	if !order.IsGuest() {
		jobs = append(jobs, delivery{
			userID:    order.CustomerID,
			relatedID: order.ID,
			notifType: string(EventOrderPlaced),
			status:    string(StatusNewOrder),
			event:     EventOrderPlaced,
			data:      data,
			policy:    d.config.Policies.OrderStatus,
		})
	}

	if len(jobs) == 0 {
		return Result{Skipped: "no recipients"}
	}
	return d.notifyAll(ctx, jobs, len(jobs))
}

// TruckNearby notifies users who favourited the truck and are within the radius.
func (d *Dispatcher) TruckNearby(ctx context.Context, ev TruckMoved) Result {
	truck, err := d.stores.Trucks.GetTruck(ctx, ev.TruckID)
	if err != nil {
		slog.Error("dispatch aborted: truck not loaded", "truck_id", ev.TruckID, "error", err)
		return Result{Err: fmt.Errorf("loading truck %s: %w", ev.TruckID, err)}
	}

	users, err := d.stores.Users.ListFavoritingUsers(ctx, ev.TruckID)
	if err != nil {
		slog.Error("dispatch aborted: favoriting users not loaded", "truck_id", ev.TruckID, "error", err)
		return Result{Err: fmt.Errorf("listing users for truck %s: %w", ev.TruckID, err)}
	}

	var jobs []delivery
	for _, u := range users {
		if u.LastLocation == nil {
			continue
		}
		dist := DistanceMiles(ev.Location, *u.LastLocation)
		if dist > d.config.ProximityRadiusMiles {
			continue
		}
		jobs = append(jobs, delivery{
			userID:    u.ID,
			user:      u,
			relatedID: truck.ID,
			notifType: string(EventTruckNearby),
			status:    "nearby",
			event:     EventTruckNearby,
			data:      FormatData{TruckName: truck.Name, DistanceMiles: dist},
			policy:    d.config.Policies.Proximity,
			topic:     TopicFavoriteNearby,
			ambient:   true,
		})
	}

	if len(jobs) == 0 {
		return Result{Skipped: "no users nearby"}
	}
	return d.notifyAll(ctx, jobs, d.config.AmbientConcurrency)
}

// DealPosted notifies users who favourited the posting truck.
func (d *Dispatcher) DealPosted(ctx context.Context, ev DealPosted) Result {
	deal, err := d.stores.Deals.GetDeal(ctx, ev.DealID)
	if err != nil {
		slog.Error("dispatch aborted: deal not loaded", "deal_id", ev.DealID, "error", err)
		return Result{Err: fmt.Errorf("loading deal %s: %w", ev.DealID, err)}
	}
	if deal.ExpiresAt != nil && deal.ExpiresAt.Before(d.now()) {
		return Result{Skipped: "deal expired"}
	}

	data := FormatData{DealTitle: deal.Title, DealDescription: deal.Description}
	if truck, err := d.stores.Trucks.GetTruck(ctx, deal.TruckID); err != nil {
		slog.Warn("truck not loaded", "truck_id", deal.TruckID, "deal_id", deal.ID, "error", err)
	} else {
		data.TruckName = truck.Name
	}

	users, err := d.stores.Users.ListFavoritingUsers(ctx, deal.TruckID)
	if err != nil {
		slog.Error("dispatch aborted: favoriting users not loaded", "truck_id", deal.TruckID, "error", err)
		return Result{Err: fmt.Errorf("listing users for truck %s: %w", deal.TruckID, err)}
	}

	jobs := make([]delivery, 0, len(users))
	for _, u := range users {
		jobs = append(jobs, delivery{
			userID:    u.ID,
			user:      u,
			relatedID: deal.ID,
			notifType: string(EventDealPosted),
			status:    "posted",
			event:     EventDealPosted,
			data:      data,
			policy:    d.config.Policies.Deal,
			topic:     TopicDeals,
			ambient:   true,
		})
	}

	if len(jobs) == 0 {
		return Result{Skipped: "no subscribers"}
	}
	return d.notifyAll(ctx, jobs, d.config.AmbientConcurrency)
}

// notifyAll runs deliveries concurrently. One recipient's failure never stops another.
func (d *Dispatcher) notifyAll(ctx context.Context, jobs []delivery, limit int) Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = d.notify(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	var total Result
	for _, r := range results {
		total.add(r)
	}
	return total
}

// notify runs the per-recipient pipeline: gate, preferences, format, fan-out, receipt.
func (d *Dispatcher) notify(ctx context.Context, job delivery) Result {
	if job.userID == "" {
		return Result{Skipped: "no recipient"}
	}

	if !d.gate.ShouldSend(ctx, job.userID, job.relatedID, job.notifType, job.policy) {
		return Result{Skipped: "cooldown"}
	}

	var elig *Eligibility
	if job.user != nil {
		elig = EligibilityFor(job.user)
	} else {
		elig = d.resolver.Resolve(ctx, job.userID)
	}

	if job.topic != "" && !elig.Topics[job.topic] {
		return Result{Skipped: "topic disabled"}
	}

	if job.ambient && d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, job.userID)
		if err != nil {
			slog.Warn("ambient rate limit check failed, dropping", "user_id", job.userID, "error", err)
			return Result{Skipped: "rate limit unavailable"}
		}
		if !allowed {
			return Result{Skipped: "rate limited"}
		}
	}

	job.data.RecipientName = elig.DisplayName
	job.data.RecipientRole = elig.Role
	content := d.formatter.Format(job.event, job.data)
	results := d.fanOut(ctx, job, elig, &content)

	receipt := &Receipt{
		RecipientUserID: job.userID,
		RelatedID:       job.relatedID,
		Type:            job.notifType,
		Status:          job.status,
		Title:           content.Title,
		Body:            content.Body,
		Channels:        results,
		Read:            false,
		CreatedAt:       d.now(),
	}

	out := Result{Attempted: len(results), Sent: receipt.Succeeded()}
	if err := d.stores.Receipts.Add(ctx, receipt); err != nil {
		slog.Error("failed to write notification receipt",
			"user_id", job.userID,
			"related_id", job.relatedID,
			"type", job.notifType,
			"error", err,
		)
	} else {
		out.Receipts = 1
	}

	for _, r := range results {
		if r.Method == ChannelPush && r.PruneToken && elig.Push != nil {
			d.pruneToken(job.userID, elig.Push.Token)
		}
	}

	slog.Info("notification dispatched",
		"user_id", job.userID,
		"related_id", job.relatedID,
		"type", job.notifType,
		"attempted", out.Attempted,
		"sent", out.Sent,
	)
	return out
}

// fanOut sends on every eligible channel at once and returns after all have resolved.
func (d *Dispatcher) fanOut(ctx context.Context, job delivery, elig *Eligibility, content *Content) []ChannelResult {
	var sends []func() ChannelResult

	if content.Wants(ChannelPush) && elig.CanSend(ChannelPush) {
		dest := *elig.Push
		data := map[string]string{
			"type":   job.notifType,
			"status": job.status,
		}
		if job.relatedID != "" {
			data["relatedId"] = job.relatedID
		}
		sends = append(sends, func() ChannelResult {
			return d.channels.SendPush(ctx, job.userID, dest, content, data)
		})
	}
	if content.Wants(ChannelSMS) && elig.CanSend(ChannelSMS) {
		sends = append(sends, func() ChannelResult {
			return d.channels.SendSMS(ctx, elig.Phone, content)
		})
	}
	if content.Wants(ChannelEmail) && elig.CanSend(ChannelEmail) {
		sends = append(sends, func() ChannelResult {
			return d.channels.SendEmail(ctx, elig.Email, elig.DisplayName, job.replyTo, content)
		})
	}

	results := make([]ChannelResult, len(sends))
	var g errgroup.Group
	for i, send := range sends {
		g.Go(func() error {
			results[i] = send()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// pruneToken clears an invalid token outside the dispatch path.
func (d *Dispatcher) pruneToken(userID, token string) {
	d.bg.Add(1)
	go func() {
		defer d.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.config.PruneTimeout)
		defer cancel()

		if err := d.stores.Users.ClearPushToken(ctx, userID, token); err != nil {
			slog.Warn("failed to prune push token", "user_id", userID, "error", err)
			return
		}
		slog.Info("pruned invalid push token", "user_id", userID)
	}()
}
