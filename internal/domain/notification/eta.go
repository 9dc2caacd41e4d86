package notification

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// BoundsPolicy selects how an estimate is bounded and rounded.
type BoundsPolicy int

const (
	// StandardBounds is written onto orders: [5,45] minutes, ceiling at every step,
	// with a flat peak-hour surcharge.
	StandardBounds BoundsPolicy = iota

	// SmartBounds is shown to customers before ordering: [5,60] minutes, rounded to the
	// nearest 5, with time-of-day, day-of-week and queue-length factors.
	SmartBounds
)

const (
	minutesPerItem        = 3
	instructionsSurcharge = 2
	instructionsMinLen    = 10
	peakMultiplier        = 1.4
	baselinePrepMinutes   = 15.0
	queueFactorPerOrder   = 0.3
)

// categoryMultipliers is matched in order against the lowercased item category.
var categoryMultipliers = []struct {
	keywords   []string
	multiplier float64
}{
	{[]string{"grill", "bbq"}, 1.5},
	{[]string{"fried", "deep"}, 1.3},
	{[]string{"sandwich", "burger"}, 1.2},
}

func categoryMultiplier(category string) float64 {
	c := strings.ToLower(category)
	for _, m := range categoryMultipliers {
		for _, kw := range m.keywords {
			if strings.Contains(c, kw) {
				return m.multiplier
			}
		}
	}
	return 1.0
}

// ceilMul multiplies and rounds up, ignoring float noise below a nanominute.
func ceilMul(v int, factor float64) int {
	return int(math.Ceil(float64(v)*factor - 1e-9))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isPeakHour(hour int) bool {
	return (hour >= 11 && hour <= 14) || (hour >= 17 && hour <= 20)
}

// timeOfDayMultiplier covers breakfast, lunch, dinner and late night.
func timeOfDayMultiplier(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 10:
		return 1.1
	case hour >= 11 && hour <= 14:
		return 1.4
	case hour >= 17 && hour <= 20:
		return 1.3
	case hour >= 21 || hour <= 4:
		return 0.9
	default:
		return 1.0
	}
}

func dayOfWeekMultiplier(d time.Weekday) float64 {
	switch d {
	case time.Saturday, time.Sunday:
		return 1.2
	case time.Monday:
		return 0.9
	default:
		return 1.0
	}
}

// itemsBase is the quantity cost times the heaviest category, plus the flat
// instructions surcharge.
func itemsBase(items []OrderItem) int {
	base := 0
	maxMult := 1.0
	extra := 0
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		base += minutesPerItem * qty
		if m := categoryMultiplier(it.Category); m > maxMult {
			maxMult = m
		}
		if utf8.RuneCountInString(strings.TrimSpace(it.SpecialInstructions)) > instructionsMinLen {
			extra += instructionsSurcharge
		}
	}
	return ceilMul(base, maxMult) + extra
}

func truckFactor(truck *Truck) float64 {
	if truck == nil || truck.AveragePrepTime <= 0 {
		return 1.0
	}
	return truck.AveragePrepTime / baselinePrepMinutes
}

// EstimatePrepTime returns a preparation estimate in whole minutes. It is a pure
// function of its arguments; now supplies the hour and weekday.
func EstimatePrepTime(items []OrderItem, truck *Truck, now time.Time, policy BoundsPolicy) int {
	total := itemsBase(items)

	if policy == SmartBounds {
		currentOrders := 0
		if truck != nil && truck.CurrentOrders > 0 {
			currentOrders = truck.CurrentOrders
		}
		raw := float64(total) *
			timeOfDayMultiplier(now.Hour()) *
			dayOfWeekMultiplier(now.Weekday()) *
			(1 + float64(currentOrders)*queueFactorPerOrder) *
			truckFactor(truck)
		v := clamp(int(math.Round(raw)), 5, 60)
		return clamp(int(math.Round(float64(v)/5))*5, 5, 60)
	}

	if isPeakHour(now.Hour()) {
		total = ceilMul(total, peakMultiplier)
	}
	if f := truckFactor(truck); f != 1.0 {
		total = ceilMul(total, f)
	}
	return clamp(total, 5, 45)
}
