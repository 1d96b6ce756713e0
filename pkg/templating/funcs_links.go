package templating

import "strings"

// NavLink is a resolved navigation entry ready for rendering.
type NavLink struct {
	Label    string
	Href     string
	External bool
}

// langPath substitutes the language placeholder in a configured path.
func langPath(path, lang string) string {
	return strings.ReplaceAll(path, "{lang}", lang)
}

// swapLang rewrites a page path from one edition to another. Paths outside
// the language prefix are returned as the other edition's home.
func swapLang(path, from, to string) string {
	prefix := "/" + from + "/"
	if strings.HasPrefix(path, prefix) {
		return "/" + to + "/" + strings.TrimPrefix(path, prefix)
	}
	return "/" + to + "/"
}

// navLinks resolves the configured navigation bar for a page in lang at
// pagePath, translating labels and appending the link to the other edition.
func (tm *TemplateManager) navLinks(lang, pagePath string) []NavLink {
	links := make([]NavLink, 0, len(tm.config.Nav)+1)
	for _, e := range tm.config.Nav {
		links = append(links, NavLink{
			Label:    tm.tr(lang, e.Label),
			Href:     langPath(e.Path, lang),
			External: e.External,
		})
	}
	if other, ok := tm.otherLang(lang); ok {
		links = append(links, NavLink{
			Label: other.Label,
			Href:  swapLang(pagePath, lang, other.Code),
		})
	}
	return links
}

// otherLang returns the first configured edition that is not lang.
func (tm *TemplateManager) otherLang(lang string) (Language, bool) {
	for _, l := range tm.config.Languages {
		if l.Code != lang {
			return l, true
		}
	}
	return Language{}, false
}
