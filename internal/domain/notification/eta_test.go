package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// at returns the given weekday and hour in the week of Monday 2026-10-19.
func at(t *testing.T, day time.Weekday, hour int) time.Time {
	t.Helper()
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())
	offset := (int(day) - int(time.Monday) + 7) % 7
	return monday.AddDate(0, 0, offset).Add(time.Duration(hour) * time.Hour)
}

func TestEstimatePrepTimeStandard(t *testing.T) {
	tacosAndBurger := []OrderItem{
		{Name: "Taco", Quantity: 2, Category: "Tacos"},
		{Name: "Smash Burger", Quantity: 1, Category: "Burgers"},
	}

	tests := []struct {
		name  string
		items []OrderItem
		truck *Truck
		hour  int
		want  int
	}{
		{
			name: "empty order hits the floor",
			hour: 9,
			want: 5,
		},
		{
			name:  "heaviest category multiplies the whole order",
			items: tacosAndBurger,
			hour:  15,
			want:  11,
		},
		{
			name:  "peak hour surcharge rounds up",
			items: tacosAndBurger,
			hour:  12,
			want:  16,
		},
		{
			name:  "baseline truck leaves the estimate alone",
			items: tacosAndBurger,
			truck: &Truck{AveragePrepTime: 15},
			hour:  15,
			want:  11,
		},
		{
			name:  "slow truck scales up",
			items: tacosAndBurger,
			truck: &Truck{AveragePrepTime: 20},
			hour:  15,
			want:  15,
		},
		{
			name:  "missing quantity counts as one",
			items: []OrderItem{{Name: "Lemonade"}, {Name: "Horchata"}, {Name: "Agua Fresca", Quantity: -1}},
			hour:  15,
			want:  9,
		},
		{
			name: "ceiling at 45",
			items: []OrderItem{{
				Name:                "Brisket Plate",
				Quantity:            4,
				Category:            "BBQ Grill",
				SpecialInstructions: "extra sauce on the side",
			}},
			truck: &Truck{AveragePrepTime: 30},
			hour:  18,
			want:  45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatePrepTime(tt.items, tt.truck, at(t, time.Tuesday, tt.hour), StandardBounds)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimatePrepTimeInstructionsThreshold(t *testing.T) {
	now := at(t, time.Tuesday, 15)
	item := func(note string) []OrderItem {
		return []OrderItem{{Name: "Taco", Quantity: 3, SpecialInstructions: note}}
	}

	assert.Equal(t, 9, EstimatePrepTime(item("0123456789"), nil, now, StandardBounds))
	assert.Equal(t, 11, EstimatePrepTime(item("01234567890"), nil, now, StandardBounds))
	assert.Equal(t, 9, EstimatePrepTime(item("   short    "), nil, now, StandardBounds))
}

func TestEstimatePrepTimeSmart(t *testing.T) {
	fourTacos := []OrderItem{{Name: "Taco", Quantity: 4, Category: "Tacos"}}

	tests := []struct {
		name  string
		items []OrderItem
		truck *Truck
		day   time.Weekday
		hour  int
		want  int
	}{
		{name: "empty order hits the floor", day: time.Tuesday, hour: 15, want: 5},
		{name: "rounds to nearest five", items: fourTacos, day: time.Tuesday, hour: 15, want: 10},
		{name: "breakfast rush", items: fourTacos, day: time.Wednesday, hour: 8, want: 15},
		{name: "weekend lunch", items: fourTacos, day: time.Saturday, hour: 12, want: 20},
		{name: "quiet monday night", items: fourTacos, day: time.Monday, hour: 23, want: 10},
		{
			name:  "queue length adds thirty percent per order",
			items: fourTacos,
			truck: &Truck{AveragePrepTime: 15, CurrentOrders: 5},
			day:   time.Tuesday,
			hour:  15,
			want:  30,
		},
		{
			name:  "ceiling at 60",
			items: []OrderItem{{Name: "Ribs", Quantity: 10, Category: "grill"}},
			day:   time.Saturday,
			hour:  12,
			want:  60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatePrepTime(tt.items, tt.truck, at(t, tt.day, tt.hour), SmartBounds)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, got%5)
		})
	}
}

func TestEstimatePrepTimeBounds(t *testing.T) {
	huge := []OrderItem{{Name: "Everything", Quantity: 500, Category: "bbq"}}
	now := at(t, time.Saturday, 12)

	assert.Equal(t, 45, EstimatePrepTime(huge, nil, now, StandardBounds))
	assert.Equal(t, 60, EstimatePrepTime(huge, nil, now, SmartBounds))
	assert.Equal(t, 5, EstimatePrepTime(nil, nil, now, StandardBounds))
	assert.Equal(t, 5, EstimatePrepTime(nil, nil, now, SmartBounds))
}
