package pagefix

import (
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether the element's class list contains class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode || class == "" {
		return false
	}
	v, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// addClass appends class to the class list. It reports whether the node changed.
func addClass(n *html.Node, class string) bool {
	if HasClass(n, class) {
		return false
	}
	v, _ := getAttr(n, "class")
	fields := strings.Fields(v)
	setAttr(n, "class", strings.Join(append(fields, class), " "))
	return true
}

// removeClass drops every occurrence of class and removes the attribute when
// nothing is left. It reports whether the node changed.
func removeClass(n *html.Node, class string) bool {
	if !HasClass(n, class) {
		return false
	}
	v, _ := getAttr(n, "class")
	kept := make([]string, 0, 4)
	for _, c := range strings.Fields(v) {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
	} else {
		setAttr(n, "class", strings.Join(kept, " "))
	}
	return true
}

// findByID returns the first element in document order with the given id.
func findByID(root *html.Node, id string) *html.Node {
	if root == nil || id == "" {
		return nil
	}
	if root.Type == html.ElementNode {
		if v, ok := getAttr(root, "id"); ok && v == id {
			return root
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// navAnchors collects <a> elements that carry navClass or sit below an
// element that does, in document order.
func navAnchors(root *html.Node, navClass string) []*html.Node {
	var anchors []*html.Node
	var walk func(n *html.Node, inNav bool)
	walk = func(n *html.Node, inNav bool) {
		if n.Type == html.ElementNode {
			if HasClass(n, navClass) {
				inNav = true
			}
			if inNav && strings.EqualFold(n.Data, "a") {
				anchors = append(anchors, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inNav)
		}
	}
	if root != nil {
		walk(root, false)
	}
	return anchors
}
