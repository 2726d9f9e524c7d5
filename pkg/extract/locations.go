package extract

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"

	"github.com/japaniel/diningmenu/pkg/catalog"
)

var (
	selSelect = cascadia.MustCompile("select")
	selOption = cascadia.MustCompile("option")
)

// selectStrategies locate the location dropdown, most specific first.
var selectStrategies = []struct {
	name string
	find func(doc *html.Node) *html.Node
}{
	{"name", firstMatch(`select[name="locationNum"]`)},
	{"id", firstMatch(`select#locationNum`)},
	{"id-substring", firstMatch(`select[id*="location"]`)},
	{"most-options", mostOptions},
}

// placeholderRules reject options that do not name a location.
var placeholderRules = []func(value, lowerText string) bool{
	func(value, _ string) bool { return value == "" || value == "0" },
	func(_, lower string) bool { return strings.Contains(lower, "select") },
	func(_, lower string) bool { return strings.Contains(lower, "choose") },
	func(_, lower string) bool { return strings.Contains(lower, "please") },
	func(_, lower string) bool { return length(lower) < 3 },
}

func firstMatch(selector string) func(*html.Node) *html.Node {
	sel := cascadia.MustCompile(selector)
	return func(doc *html.Node) *html.Node { return sel.MatchFirst(doc) }
}

// mostOptions returns the select with the most options; ties go to the first in document order.
func mostOptions(doc *html.Node) *html.Node {
	var best *html.Node
	bestCount := 0
	for _, s := range selSelect.MatchAll(doc) {
		if n := len(selOption.MatchAll(s)); n > bestCount {
			best, bestCount = s, n
		}
	}
	return best
}

// locationSelect returns the options of the first strategy whose select has any.
func locationSelect(doc *html.Node) (strategy string, options []*html.Node) {
	for _, st := range selectStrategies {
		s := st.find(doc)
		if s == nil {
			continue
		}
		if opts := selOption.MatchAll(s); len(opts) > 0 {
			return st.name, opts
		}
	}
	return "", nil
}

func placeholder(value, text string) bool {
	lower := strings.ToLower(text)
	for _, rule := range placeholderRules {
		if rule(value, lower) {
			return true
		}
	}
	return false
}

// Locations extracts dining locations from the listing page's location dropdown.
// Option values become ids and option labels become names; ids known to the
// static catalog take its category, others are dining halls. Known entries
// missing from the page are appended so the result covers the whole catalog.
// menuURL, when non-nil, builds each extracted location's SourceURL.
//
// It returns ErrNoSelect when no dropdown is found and ErrEmptyResult when the
// dropdown holds only placeholders.
func Locations(doc *html.Node, known []catalog.DiningLocation, menuURL func(id, name string) string) ([]catalog.DiningLocation, error) {
	_, options := locationSelect(doc)
	if options == nil {
		return nil, ErrNoSelect
	}

	var out []catalog.DiningLocation
	seen := make(map[string]bool)
	for _, opt := range options {
		value := strings.TrimSpace(dom.GetAttribute(opt, "value"))
		label := nodeText(opt)
		if placeholder(value, label) || seen[value] {
			continue
		}
		seen[value] = true

		loc := catalog.DiningLocation{
			ID:               value,
			Name:             label,
			LocationName:     label,
			Category:         catalog.DiningHall,
			SupportsDelivery: true,
			IsOpen:           true,
		}
		if _, cat, ok := catalog.Lookup(value); ok {
			loc.Category = cat
		}
		if menuURL != nil {
			loc.SourceURL = menuURL(value, label)
		}
		out = append(out, loc)
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}

	for _, k := range known {
		if !seen[k.ID] {
			seen[k.ID] = true
			out = append(out, k)
		}
	}
	return out, nil
}
