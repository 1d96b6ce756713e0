package pagefix

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
)

// Result reports what a single Fix pass changed.
type Result struct {
	Path        string   `json:"path"`
	Year        string   `json:"year,omitempty"`
	YearStamped bool     `json:"year_stamped"`
	Active      []string `json:"active"`
	Cleared     int      `json:"cleared"`
	Skipped     int      `json:"skipped"`

	// Modified is false when the pass left the tree exactly as parsed.
	Modified bool `json:"modified"`
}

// Fixer runs the year stamper and the navigation highlighter with a fixed
// set of options. It is safe for concurrent use as long as callers pass
// separate trees.
type Fixer struct {
	opts  Options
	loc   *time.Location
	clock clockwork.Clock
}

// NewFixer validates opts and returns a Fixer reading time from clock.
// A nil clock uses the real clock.
func NewFixer(opts Options, clock clockwork.Clock) (*Fixer, error) {
	loc, err := opts.Location()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Fixer{opts: opts, loc: loc, clock: clock}, nil
}

// Options returns the options the fixer was built with.
func (f *Fixer) Options() Options {
	return f.opts
}

// Year returns the year Fix would stamp right now.
func (f *Fixer) Year() string {
	return FormatYear(f.clock.Now().In(f.loc))
}

// Fix stamps the year and highlights navigation on root in place.
func (f *Fixer) Fix(root *html.Node, currentPath string) Result {
	res := Result{Path: currentPath}
	var yearChanged bool
	res.Year, res.YearStamped, yearChanged = stampYear(root, f.opts.YearElementID, f.clock.Now().In(f.loc))

	nav := HighlightNav(root, currentPath, f.opts)
	res.Active = nav.Active
	res.Cleared = nav.Cleared
	res.Skipped = nav.Skipped
	res.Modified = yearChanged || nav.Added > 0 || nav.Cleared > 0
	return res
}

// Rewrite parses a full HTML document from r, fixes it for currentPath and
// renders the result to w. Only parse and render failures are errors.
func (f *Fixer) Rewrite(r io.Reader, w io.Writer, currentPath string) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{Path: currentPath}, fmt.Errorf("failed to parse %s: %w", currentPath, err)
	}
	res := f.Fix(doc, currentPath)
	if err = html.Render(w, doc); err != nil {
		return res, fmt.Errorf("failed to render %s: %w", currentPath, err)
	}
	return res, nil
}

// RewriteBytes is Rewrite over byte slices. When the pass changes nothing,
// src itself is returned so the original markup is kept byte for byte.
func (f *Fixer) RewriteBytes(src []byte, currentPath string) ([]byte, Result, error) {
	var buf bytes.Buffer
	buf.Grow(len(src) + 64)
	res, err := f.Rewrite(bytes.NewReader(src), &buf, currentPath)
	if err != nil {
		return nil, res, err
	}
	if !res.Modified {
		return src, res, nil
	}
	return buf.Bytes(), res, nil
}
