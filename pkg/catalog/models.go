// Package catalog defines the dining entities and the static catalog used when
// nothing fresher is available.
package catalog

import "strings"

// Category classifies a dining location.
type Category string

const (
	DiningHall Category = "dining_hall"
	Cafe       Category = "cafe"
	Market     Category = "market"
)

// MealPeriod names a service window. The zero value means no period is known.
type MealPeriod string

const (
	Breakfast MealPeriod = "Breakfast"
	Lunch     MealPeriod = "Lunch"
	Dinner    MealPeriod = "Dinner"
	LateNight MealPeriod = "Late Night"
)

// Periods lists the meal periods in service order.
var Periods = []MealPeriod{Breakfast, Lunch, Dinner, LateNight}

// DiningLocation is one selectable location on the listing site.
type DiningLocation struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	LocationName     string   `json:"locationName"`
	Category         Category `json:"category"`
	SupportsDelivery bool     `json:"supportsDelivery"`
	IsOpen           bool     `json:"isOpen"`
	SourceURL        string   `json:"sourceUrl,omitempty"`
}

// MenuItem is one dish offered at a location. An item without MealPeriods is
// shown regardless of the time of day.
type MenuItem struct {
	ID          string       `json:"id"`
	LocationID  string       `json:"locationId"`
	Name        string       `json:"name"`
	Calories    *int         `json:"calories,omitempty"`
	IsAvailable bool         `json:"isAvailable"`
	MealPeriods []MealPeriod `json:"mealPeriods,omitempty"`
}

// ItemID derives a menu item id from its location and name: the lower-cased
// name with every character outside [a-z0-9] replaced by '-', cut to 50 bytes.
func ItemID(locationID, name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	slug := b.String()
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return locationID + "-" + slug
}

// CloneLocations returns a copy of locs that shares no memory with it.
func CloneLocations(locs []DiningLocation) []DiningLocation {
	if locs == nil {
		return nil
	}
	out := make([]DiningLocation, len(locs))
	copy(out, locs)
	return out
}

// CloneMenuItems returns a deep copy of items.
func CloneMenuItems(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Calories != nil {
			c := *it.Calories
			out[i].Calories = &c
		}
		if it.MealPeriods != nil {
			out[i].MealPeriods = append([]MealPeriod(nil), it.MealPeriods...)
		}
	}
	return out
}
