package pagefix

import "golang.org/x/net/html"

// NavResult describes the outcome of a HighlightNav pass.
type NavResult struct {
	// Active holds the raw href of every anchor flagged in this pass.
	Active []string
	// Added counts anchors that did not carry the active class before.
	Added int
	// Cleared counts anchors that lost a stale active flag.
	Cleared int
	// Skipped counts navigation anchors without an href.
	Skipped int
}

// HighlightNav flags the navigation anchors whose normalized href equals the
// normalized currentPath. Matching is exact string equality after
// NormalizePath; there is no prefix matching. Anchors without an href are
// skipped. When opts.ClearStale is set, every other navigation anchor loses
// the active class. An anchor that is already correct is left untouched.
func HighlightNav(root *html.Node, currentPath string, opts Options) NavResult {
	var res NavResult
	anchors := navAnchors(root, opts.NavClass)
	if opts.ActiveClass == "" {
		return res
	}

	here := NormalizePath(currentPath, opts.DefaultDocument)
	for _, a := range anchors {
		href, ok := getAttr(a, "href")
		if !ok {
			res.Skipped++
		}
		if !ok || NormalizePath(href, opts.DefaultDocument) != here {
			if opts.ClearStale && removeClass(a, opts.ActiveClass) {
				res.Cleared++
			}
			continue
		}
		if addClass(a, opts.ActiveClass) {
			res.Added++
		}
		res.Active = append(res.Active, href)
	}
	return res
}
