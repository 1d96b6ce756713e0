package pagefix

import (
	"fmt"
	"time"

	"golang.org/x/net/html"
)

// FormatYear renders the calendar year of t as four digits.
func FormatYear(t time.Time) string {
	return fmt.Sprintf("%04d", t.Year())
}

// StampYear replaces the children of the element with the given id by a
// single text node holding the year of now. The year is taken from now as
// given, so callers convert to the wanted zone first. A missing element is
// not an error: nothing is changed and ok is false.
func StampYear(root *html.Node, id string, now time.Time) (year string, ok bool) {
	year, ok, _ = stampYear(root, id, now)
	return year, ok
}

// stampYear is StampYear that also reports whether the tree changed. An
// element that already holds exactly the year is left alone.
func stampYear(root *html.Node, id string, now time.Time) (year string, ok, changed bool) {
	el := findByID(root, id)
	if el == nil {
		return "", false, false
	}
	year = FormatYear(now)
	if c := el.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode && c.Data == year {
		return year, true, false
	}

	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		c = next
	}
	el.AppendChild(&html.Node{Type: html.TextNode, Data: year})
	return year, true, true
}
