package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/japaniel/diningmenu/pkg/catalog"
)

var (
	selRows   = cascadia.MustCompile("table tr")
	selHeader = cascadia.MustCompile("th")
	selBold   = cascadia.MustCompile("strong, b")
	selCell   = cascadia.MustCompile("td")
	selLink   = cascadia.MustCompile("a")
)

const (
	maxHeaderLen = 20
	maxLineName  = 100
)

// headerRules map short header text to the meal period it opens. "Brunch" is
// served under Lunch.
var headerRules = []struct {
	keywords []string
	period   catalog.MealPeriod
}{
	{[]string{"breakfast"}, catalog.Breakfast},
	{[]string{"lunch", "brunch"}, catalog.Lunch},
	{[]string{"dinner"}, catalog.Dinner},
	{[]string{"late night"}, catalog.LateNight},
}

// skipRules drop rows that cannot carry an item.
var skipRules = []func(row *html.Node, text string) bool{
	func(row *html.Node, _ string) bool { return selHeader.MatchFirst(row) != nil },
	func(_ *html.Node, text string) bool { return strings.HasPrefix(text, "--") },
	func(_ *html.Node, text string) bool { return length(text) < 3 },
}

// nameRules produce candidate item names; the first non-empty one wins.
var nameRules = []func(row *html.Node, text string) string{
	func(row *html.Node, _ string) string { return nodeText(selBold.MatchFirst(row)) },
	func(row *html.Node, _ string) string { return nodeText(selCell.MatchFirst(row)) },
	func(row *html.Node, _ string) string { return nodeText(selLink.MatchFirst(row)) },
	firstLine,
}

// rejectRules discard names that are banners, controls or labels rather than dishes.
// Long all-caps names are rejected even when they are real dishes.
var rejectRules = []func(name, lower string) bool{
	func(name, _ string) bool { return length(name) < 2 || length(name) > 200 },
	func(name, _ string) bool { return strings.ToUpper(name) == name && length(name) > 30 },
	func(_, lower string) bool { return strings.Contains(lower, "select") },
	func(_, lower string) bool { return strings.Contains(lower, "category") },
	func(name, lower string) bool { return strings.Contains(lower, "menu") && length(name) < 10 },
}

// calorieRules accept U+00A0 wherever they accept a space; listings separate
// values from units with &nbsp;.
var calorieRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:cal|calories?)[:\s\x{00A0}]*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)[\s\x{00A0}]*(?:cal|calories?)`),
	regexp.MustCompile(`(?i)kcal[:\s\x{00A0}]*(\d+)`),
}

func firstLine(_ *html.Node, text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, maxLineName)
		}
	}
	return truncate(text, maxLineName)
}

// headerPeriod reports the meal period a row announces, if it is a header row.
func headerPeriod(text string) (catalog.MealPeriod, bool) {
	if length(text) >= maxHeaderLen {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, h := range headerRules {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				return h.period, true
			}
		}
	}
	return "", false
}

func itemName(row *html.Node, text string) string {
	for _, rule := range nameRules {
		if name := collapse(rule(row, text)); name != "" {
			return name
		}
	}
	return ""
}

func rejected(name string) bool {
	lower := strings.ToLower(name)
	for _, rule := range rejectRules {
		if rule(name, lower) {
			return true
		}
	}
	return false
}

// Calories returns the first calorie count in text that lies strictly between 0 and 10000.
func Calories(text string) (int, bool) {
	for _, re := range calorieRules {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err == nil && v > 0 && v < 10000 {
			return v, true
		}
	}
	return 0, false
}

// menuBuilder accumulates items keyed by lower-cased name in first-seen order.
type menuBuilder struct {
	locationID string
	order      []*pendingItem
	byKey      map[string]*pendingItem
}

type pendingItem struct {
	item    catalog.MenuItem
	periods []catalog.MealPeriod
	// anytime is set when the item appeared before any meal header.
	anytime bool
}

func newMenuBuilder(locationID string) *menuBuilder {
	return &menuBuilder{locationID: locationID, byKey: make(map[string]*pendingItem)}
}

func (b *menuBuilder) add(name string, calories *int, period catalog.MealPeriod) {
	key := strings.ToLower(name)
	p, ok := b.byKey[key]
	if !ok {
		p = &pendingItem{item: catalog.MenuItem{
			ID:          catalog.ItemID(b.locationID, name),
			LocationID:  b.locationID,
			Name:        name,
			Calories:    calories,
			IsAvailable: true,
		}}
		b.byKey[key] = p
		b.order = append(b.order, p)
	}
	if period == "" {
		p.anytime = true
		return
	}
	for _, have := range p.periods {
		if have == period {
			return
		}
	}
	p.periods = append(p.periods, period)
}

func (b *menuBuilder) items() []catalog.MenuItem {
	out := make([]catalog.MenuItem, 0, len(b.order))
	for _, p := range b.order {
		it := p.item
		if !p.anytime && len(p.periods) > 0 {
			it.MealPeriods = append([]catalog.MealPeriod(nil), p.periods...)
		}
		out = append(out, it)
	}
	return out
}

// MenuItems extracts the menu for locationID from a short-menu page. Rows are
// read in document order; header rows switch the current meal period and items
// repeated under several headers merge into one entity. It returns
// ErrEmptyResult when no item survives the filters.
func MenuItems(doc *html.Node, locationID string) ([]catalog.MenuItem, error) {
	b := newMenuBuilder(locationID)
	var current catalog.MealPeriod

	for _, row := range selRows.MatchAll(doc) {
		rowText := nodeText(row)

		if p, ok := headerPeriod(rowText); ok {
			current = p
			continue
		}
		if skip(row, rowText) {
			continue
		}

		name := itemName(row, rowText)
		if rejected(name) {
			continue
		}

		var calories *int
		if c, ok := Calories(rowText); ok {
			calories = &c
		}
		b.add(name, calories, current)
	}

	items := b.items()
	if len(items) == 0 {
		return nil, ErrEmptyResult
	}
	return items, nil
}

func skip(row *html.Node, text string) bool {
	for _, rule := range skipRules {
		if rule(row, text) {
			return true
		}
	}
	return false
}
