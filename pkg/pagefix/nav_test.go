package pagefix

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

const navPage = `<!doctype html><html><body>
<div class="nav">
  <a href="/en/">Home</a>
  <a href="/logs/">Logs</a>
  <a href="/en/tasks/index.html">Tasks</a>
  <a href="/en/status/">Status</a>
  <a>Placeholder</a>
  <a href="https://github.com/halewongai" target="_blank">GitHub</a>
</div>
<a href="/logs/">Logs outside nav</a>
</body></html>`

// activeTexts returns the text of every anchor currently carrying class.
func activeTexts(root *html.Node, class string) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && HasClass(n, class) {
			out = append(out, textOf(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func TestHighlightNav_Matching(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"index document matches directory link", "/logs/index.html", []string{"Logs"}},
		{"directory matches index document link", "/en/tasks/", []string{"Tasks"}},
		{"exact directory", "/en/status/", []string{"Status"}},
		{"root does not prefix-match", "/", nil},
		{"no partial matching", "/en/tasks/extra/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, navPage)
			HighlightNav(doc, tt.path, DefaultOptions())
			if diff := cmp.Diff(tt.want, activeTexts(doc, "active")); diff != "" {
				t.Errorf("active anchors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHighlightNav_SpecExamples(t *testing.T) {
	tests := []struct {
		current, href string
		active        bool
	}{
		{"/blog/index.html", "/blog/", true},
		{"/about/", "/about/index.html", true},
		{"/", "/blog/", false},
	}
	for _, tt := range tests {
		doc := parseDoc(t, `<nav class="nav"><a href="`+tt.href+`">x</a></nav>`)
		res := HighlightNav(doc, tt.current, DefaultOptions())
		if got := len(res.Active) == 1; got != tt.active {
			t.Errorf("current=%q href=%q: active=%v, want %v", tt.current, tt.href, got, tt.active)
		}
	}
}

func TestHighlightNav_MissingHref(t *testing.T) {
	doc := parseDoc(t, navPage)
	res := HighlightNav(doc, "/", DefaultOptions())
	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped anchor, got %d", res.Skipped)
	}
	for _, txt := range activeTexts(doc, "active") {
		if txt == "Placeholder" {
			t.Error("anchor without href must never be flagged")
		}
	}
}

func TestHighlightNav_NoAnchors(t *testing.T) {
	doc := parseDoc(t, `<p>nothing here</p>`)
	res := HighlightNav(doc, "/", DefaultOptions())
	if len(res.Active) != 0 || res.Cleared != 0 || res.Skipped != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestHighlightNav_Idempotent(t *testing.T) {
	doc := parseDoc(t, navPage)
	opts := DefaultOptions()
	HighlightNav(doc, "/logs/", opts)
	first := activeTexts(doc, "active")
	HighlightNav(doc, "/logs/", opts)
	if diff := cmp.Diff(first, activeTexts(doc, "active")); diff != "" {
		t.Errorf("second pass changed the marked set (-first +second):\n%s", diff)
	}

	opts.ClearStale = false
	HighlightNav(doc, "/logs/", opts)
	if diff := cmp.Diff(first, activeTexts(doc, "active")); diff != "" {
		t.Errorf("additive pass changed the marked set (-first +second):\n%s", diff)
	}
}

func TestHighlightNav_StaleFlags(t *testing.T) {
	src := `<div class="nav"><a class="active" href="/en/">Home</a><a href="/logs/">Logs</a></div>`

	doc := parseDoc(t, src)
	res := HighlightNav(doc, "/logs/", DefaultOptions())
	if res.Cleared != 1 {
		t.Errorf("expected 1 cleared flag, got %d", res.Cleared)
	}
	if diff := cmp.Diff([]string{"Logs"}, activeTexts(doc, "active")); diff != "" {
		t.Errorf("stale flag not cleared (-want +got):\n%s", diff)
	}

	opts := DefaultOptions()
	opts.ClearStale = false
	doc = parseDoc(t, src)
	HighlightNav(doc, "/logs/", opts)
	if diff := cmp.Diff([]string{"Home", "Logs"}, activeTexts(doc, "active")); diff != "" {
		t.Errorf("additive mode should keep prior flags (-want +got):\n%s", diff)
	}
}

func TestHighlightNav_PreservesClasses(t *testing.T) {
	doc := parseDoc(t, `<div class="nav"><a class="btn  primary" href="/logs/">Logs</a></div>`)
	HighlightNav(doc, "/logs/", DefaultOptions())
	a := navAnchors(doc, "nav")[0]
	if v, _ := getAttr(a, "class"); v != "btn primary active" {
		t.Errorf("unexpected class list %q", v)
	}

	HighlightNav(doc, "/en/", DefaultOptions())
	if v, _ := getAttr(a, "class"); v != "btn primary" {
		t.Errorf("expected active removed and other classes kept, got %q", v)
	}
}

func TestHighlightNav_AnchorCarriesClass(t *testing.T) {
	doc := parseDoc(t, `<a class="nav" href="/en/">Home</a><a href="/en/">Plain</a>`)
	HighlightNav(doc, "/en/index.html", DefaultOptions())
	if diff := cmp.Diff([]string{"Home"}, activeTexts(doc, "active")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// The fixes must work on trees built in memory, not only parsed markup.
func TestHighlightNav_ConstructedTree(t *testing.T) {
	root := &html.Node{Type: html.DocumentNode}
	nav := &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "class", Val: "nav"}}}
	root.AppendChild(nav)
	for _, href := range []string{"/a/", "/b/index.html"} {
		a := &html.Node{Type: html.ElementNode, Data: "a", Attr: []html.Attribute{{Key: "href", Val: href}}}
		a.AppendChild(&html.Node{Type: html.TextNode, Data: href})
		nav.AppendChild(a)
	}

	res := HighlightNav(root, "/b/", DefaultOptions())
	if diff := cmp.Diff([]string{"/b/index.html"}, res.Active); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestHighlightNav_CorrectAnchorUntouched(t *testing.T) {
	doc := parseDoc(t, `<div class="nav"><a class="active btn" href="/logs/">Logs</a><a href="/en/">Home</a></div>`)
	res := HighlightNav(doc, "/logs/index.html", DefaultOptions())
	if res.Added != 0 || res.Cleared != 0 {
		t.Errorf("expected no changes, got %+v", res)
	}
	if v, _ := getAttr(navAnchors(doc, "nav")[0], "class"); v != "active btn" {
		t.Errorf("class list of a correct anchor was rewritten to %q", v)
	}
	if diff := cmp.Diff([]string{"/logs/"}, res.Active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
}
