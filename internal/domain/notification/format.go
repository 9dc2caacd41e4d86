package notification

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Event names a notification template.
type Event string

const (
	EventNewOrder    Event = "new_order"
	EventOrderPlaced Event = "order_placed"
	EventConfirmed   Event = "confirmed"
	EventPreparing   Event = "preparing"
	EventReady       Event = "ready"
	EventCompleted   Event = "completed"
	EventCancelled   Event = "cancelled"
	EventTruckNearby Event = "truck_nearby"
	EventDealPosted  Event = "deal_posted"
	EventUpdate      Event = "update"
)

// FormatData is the context a template is filled from. Zero values are allowed.
type FormatData struct {
	OrderID         string
	TruckName       string
	CustomerName    string
	RecipientName   string
	RecipientRole   Role
	TotalAmount     int64
	ETAMinutes      int
	ReadyAt         *time.Time
	Items           []OrderItem
	DealTitle       string
	DealDescription string
	DistanceMiles   float64
}

// Content is the channel-ready output of the formatter.
type Content struct {
	Event    Event
	Title    string
	Body     string
	Subject  string
	HTML     string
	Text     string
	Channels []Channel
}

// Wants reports whether the template applies to the channel.
func (c *Content) Wants(ch Channel) bool {
	for _, x := range c.Channels {
		if x == ch {
			return true
		}
	}
	return false
}

// EmailView is the data handed to the HTML email template.
type EmailView struct {
	Heading  string
	Greeting string
	Intro    string
	Details  []EmailDetail
	Items    []OrderItem
	Notes    string
	Footer   string
}

// EmailDetail is one label/value row of an email.
type EmailDetail struct {
	Label string
	Value string
}

type entry struct {
	title    func(d *FormatData) string
	body     func(d *FormatData) string
	subject  func(d *FormatData) string
	channels []Channel
}

var (
	pushOnly     = []Channel{ChannelPush}
	pushSMS      = []Channel{ChannelPush, ChannelSMS}
	pushEmail    = []Channel{ChannelPush, ChannelEmail}
	pushSMSEmail = []Channel{ChannelPush, ChannelSMS, ChannelEmail}
	printer      = message.NewPrinter(language.AmericanEnglish)
	defaultEntry = entry{title: fixed("Update"), body: updateBody, channels: pushOnly}
)

// templateByName is the fixed event table. Events missing here use defaultEntry.
var templateByName map[Event]entry

func init() {
	templateByName = map[Event]entry{
		EventNewOrder: {
			title: func(d *FormatData) string { return "New order #" + ShortID(d.OrderID) },
			body: func(d *FormatData) string {
				return fmt.Sprintf("%s ordered %s (%s).", customerName(d), itemCount(d.Items), FormatCents(d.TotalAmount))
			},
			subject: func(d *FormatData) string {
				return fmt.Sprintf("New order #%s - %s", ShortID(d.OrderID), FormatCents(d.TotalAmount))
			},
			channels: pushSMSEmail,
		},
		EventOrderPlaced: {
			title: fixed("Order placed"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("Your order #%s from %s was placed. Total %s.", ShortID(d.OrderID), truckName(d), FormatCents(d.TotalAmount))
			},
			subject: func(d *FormatData) string {
				return fmt.Sprintf("Your order from %s (#%s)", truckName(d), ShortID(d.OrderID))
			},
			channels: pushEmail,
		},
		EventConfirmed: {
			title: fixed("Order confirmed"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("%s confirmed your order #%s.%s", truckName(d), ShortID(d.OrderID), etaSentence(d, "Estimated ready in"))
			},
			channels: pushSMS,
		},
		EventPreparing: {
			title: fixed("Order being prepared"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("%s is preparing your order #%s.%s", truckName(d), ShortID(d.OrderID), etaSentence(d, "Ready in about"))
			},
			channels: pushSMS,
		},
		EventReady: {
			title: fixed("Order ready for pickup!"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("Your order #%s is ready at %s.", ShortID(d.OrderID), truckName(d))
			},
			channels: pushSMS,
		},
		EventCompleted: {
			title: fixed("Order completed"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("Thanks for ordering from %s! Order #%s is complete.", truckName(d), ShortID(d.OrderID))
			},
			channels: pushOnly,
		},
		EventCancelled: {
			title: fixed("Order cancelled"),
			body: func(d *FormatData) string {
				return fmt.Sprintf("Your order #%s from %s was cancelled.", ShortID(d.OrderID), truckName(d))
			},
			subject: func(d *FormatData) string {
				return fmt.Sprintf("Order #%s was cancelled", ShortID(d.OrderID))
			},
			channels: pushSMSEmail,
		},
		EventTruckNearby: {
			title: func(d *FormatData) string { return truckName(d) + " is nearby" },
			body: func(d *FormatData) string {
				return fmt.Sprintf("Your favorite truck %s is %.1f miles away.", truckName(d), d.DistanceMiles)
			},
			channels: pushOnly,
		},
		EventDealPosted: {
			title: func(d *FormatData) string { return "New deal from " + truckName(d) },
			body: func(d *FormatData) string {
				if d.DealDescription == "" {
					return d.DealTitle
				}
				return d.DealTitle + ": " + d.DealDescription
			},
			subject: func(d *FormatData) string { return truckName(d) + ": " + d.DealTitle },
			channels: pushEmail,
		},
	}
}

func fixed(s string) func(*FormatData) string {
	return func(*FormatData) string { return s }
}

func updateBody(d *FormatData) string {
	if d.OrderID != "" {
		return fmt.Sprintf("Your order #%s has been updated.", ShortID(d.OrderID))
	}
	return "You have a new update."
}

func truckName(d *FormatData) string {
	if d.TruckName != "" {
		return d.TruckName
	}
	return "the food truck"
}

func customerName(d *FormatData) string {
	if d.CustomerName != "" {
		return d.CustomerName
	}
	return "A customer"
}

func itemCount(items []OrderItem) string {
	n := 0
	for _, it := range items {
		if it.Quantity > 0 {
			n += it.Quantity
		} else {
			n++
		}
	}
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func etaSentence(d *FormatData, lead string) string {
	if d.ETAMinutes <= 0 {
		return ""
	}
	return fmt.Sprintf(" %s %d minutes.", lead, d.ETAMinutes)
}

// ShortID is the first 8 characters of an identifier.
func ShortID(id string) string {
	r := []rune(id)
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r)
}

// FormatCents renders an amount in cents as US dollars with grouping.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + printer.Sprintf("%.2f", float64(cents)/100)
}

// Formatter maps an event and its context to channel content.
type Formatter struct {
	renderer TemplateRenderer
}

// NewFormatter creates a formatter. A nil renderer produces minimal escaped HTML.
func NewFormatter(renderer TemplateRenderer) *Formatter {
	return &Formatter{renderer: renderer}
}

// Format never fails: unknown events use the generic update template and a renderer
// error falls back to an escaped paragraph.
func (f *Formatter) Format(event Event, d FormatData) Content {
	e, ok := templateByName[event]
	if !ok {
		e = defaultEntry
		event = EventUpdate
	}

	c := Content{
		Event:    event,
		Title:    e.title(&d),
		Body:     e.body(&d),
		Channels: e.channels,
	}
	c.Subject = c.Title
	if e.subject != nil {
		c.Subject = e.subject(&d)
	}

	view := f.emailView(event, &c, &d)
	c.Text = plainText(view)
	c.HTML = f.render(view, c.Body)
	return c
}

func (f *Formatter) render(view *EmailView, body string) string {
	if f.renderer != nil {
		out, err := f.renderer.RenderEmail(view)
		if err == nil {
			return out
		}
		slog.Error("email template render failed", "heading", view.Heading, "error", err)
	}
	return "<p>" + html.EscapeString(body) + "</p>"
}

func (f *Formatter) emailView(event Event, c *Content, d *FormatData) *EmailView {
	v := &EmailView{
		Heading: c.Title,
		Intro:   c.Body,
		Footer:  emailFooter(d.RecipientRole),
	}
	if d.RecipientName != "" {
		v.Greeting = "Hi " + d.RecipientName + ","
	}

	if d.OrderID != "" {
		v.Details = append(v.Details, EmailDetail{Label: "Order", Value: "#" + ShortID(d.OrderID)})
		if d.TotalAmount > 0 {
			v.Details = append(v.Details, EmailDetail{Label: "Total", Value: FormatCents(d.TotalAmount)})
		}
		if d.ETAMinutes > 0 {
			v.Details = append(v.Details, EmailDetail{Label: "Estimated prep time", Value: fmt.Sprintf("%d minutes", d.ETAMinutes)})
		}
		if d.ReadyAt != nil {
			v.Details = append(v.Details, EmailDetail{Label: "Ready around", Value: d.ReadyAt.Format("3:04 PM")})
		}
		v.Items = d.Items
	}

	switch event {
	case EventNewOrder:
		v.Details = append(v.Details, EmailDetail{Label: "Customer", Value: customerName(d)})
	case EventDealPosted:
		v.Intro = "New deal from " + truckName(d) + ": " + d.DealTitle
		v.Notes = d.DealDescription
	}
	return v
}

func emailFooter(role Role) string {
	switch role {
	case RoleOwner:
		return "You are receiving this because your truck takes orders on Ping My Appetite. Manage alerts from the vendor dashboard."
	case RoleOrganizer:
		return "You are receiving this because you organize events on Ping My Appetite. Manage alerts from the organizer dashboard."
	default:
		return "You are receiving this because of your notification settings."
	}
}

func plainText(v *EmailView) string {
	var b strings.Builder
	if v.Greeting != "" {
		b.WriteString(v.Greeting + "\n\n")
	}
	b.WriteString(v.Intro + "\n")
	for _, d := range v.Details {
		fmt.Fprintf(&b, "%s: %s\n", d.Label, d.Value)
	}
	for _, it := range v.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		fmt.Fprintf(&b, "- %d x %s\n", qty, it.Name)
		if s := strings.TrimSpace(it.SpecialInstructions); s != "" {
			fmt.Fprintf(&b, "  Note: %s\n", s)
		}
	}
	if v.Notes != "" {
		b.WriteString("\n" + v.Notes + "\n")
	}
	if v.Footer != "" {
		b.WriteString("\n--\n" + v.Footer + "\n")
	}
	return strings.TrimSpace(b.String())
}
