// Package extract turns fetched listing pages into dining entities using
// ordered, first-match-wins heuristic rules.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

var (
	// ErrEmptyResult means the page parsed but produced no entities.
	ErrEmptyResult = errors.New("extraction produced no entities")
	// ErrNoSelect means no location selector control was found.
	ErrNoSelect = errors.New("no location select element found")
)

// Parse builds a node tree from an HTML document.
func Parse(body []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// nodeText returns the node's text content with surrounding whitespace trimmed.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(dom.TextContent(n))
}

// collapse replaces each whitespace run with a single space and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if length(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
