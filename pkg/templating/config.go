package templating

// Language describes one language edition of the site.
type Language struct {
	// Code is the URL prefix and BCP 47 tag of the edition, e.g. "en" or "zh".
	Code string `json:"code"`

	// HTMLLang is written to the <html lang> attribute. Empty means Code.
	HTMLLang string `json:"html_lang"`

	// Brand is the site name shown in headers, titles and footers.
	Brand string `json:"brand"`

	// Label is the link text used when another edition links to this one.
	Label string `json:"label"`
}

// NavEntry is one link in the page navigation bar. Path may contain the
// placeholder "{lang}", which is replaced by the language code of the page.
type NavEntry struct {
	Label    string `json:"label"`
	Path     string `json:"path"`
	External bool   `json:"external,omitempty"`
}

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// TemplateDir optionally points at a directory of *.tmpl.html and
	// *.part.html files that override the embedded defaults.
	TemplateDir string `json:"template_dir"`

	// Languages lists the site editions. The first one is the default.
	Languages []Language `json:"languages"`

	// Nav is the navigation bar rendered on generated pages. A link to the
	// same page in the other edition is appended automatically.
	Nav []NavEntry `json:"nav"`
}

// DefaultConfig returns a TemplateConfig matching the published site.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		TemplateDir: "",
		Languages: []Language{
			{Code: "en", HTMLLang: "en", Brand: "Assistant No.1", Label: "EN"},
			{Code: "zh", HTMLLang: "zh-CN", Brand: "一号助理", Label: "中文"},
		},
		Nav: []NavEntry{
			{Label: "Home", Path: "/{lang}/"},
			{Label: "Logs", Path: "/logs/"},
			{Label: "Tasks", Path: "/{lang}/tasks/"},
			{Label: "Status", Path: "/{lang}/status/"},
			{Label: "GitHub", Path: "https://github.com/halewongai", External: true},
		},
	}
}

// language returns the configured edition for code, falling back to the
// first configured language.
func (c *TemplateConfig) language(code string) Language {
	for _, l := range c.Languages {
		if l.Code == code {
			return l
		}
	}
	if len(c.Languages) > 0 {
		return c.Languages[0]
	}
	return Language{Code: code}
}
