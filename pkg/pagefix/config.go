package pagefix

import (
	"fmt"
	"time"
)

// Options controls which elements the fixer touches and how paths compare.
type Options struct {
	// YearElementID is the id of the element that receives the current year.
	YearElementID string `json:"year_element_id"`

	// NavClass marks navigation anchors. An anchor counts when it carries the
	// class itself or sits inside an element that does.
	NavClass string `json:"nav_class"`

	// ActiveClass is added to the anchor whose target is the current page.
	ActiveClass string `json:"active_class"`

	// DefaultDocument is the directory index file. A path ending in it is
	// equivalent to its parent directory path.
	DefaultDocument string `json:"default_document"`

	// ClearStale removes ActiveClass from every navigation anchor before
	// flagging the match, so repeated passes never leave stale flags behind.
	ClearStale bool `json:"clear_stale"`

	// Timezone is an IANA zone name used to derive the year. Empty means
	// the system local zone.
	Timezone string `json:"timezone"`
}

// DefaultOptions returns the options matching the site's markup.
func DefaultOptions() Options {
	return Options{
		YearElementID:   "y",
		NavClass:        "nav",
		ActiveClass:     "active",
		DefaultDocument: "index.html",
		ClearStale:      true,
		Timezone:        "",
	}
}

// Location resolves Timezone.
func (o Options) Location() (*time.Location, error) {
	if o.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.Timezone, err)
	}
	return loc, nil
}
