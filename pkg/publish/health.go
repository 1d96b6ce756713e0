package publish

import (
	"encoding/json"
	"fmt"

	"github.com/CTAG07/sitekit/pkg/templating"
)

// Check is the state of one monitored subsystem. OK is kept as decoded:
// only JSON true and false count, anything else renders as unknown.
type Check struct {
	OK     any    `json:"ok"`
	Detail string `json:"detail"`
	URL    string `json:"url"`
	State  string `json:"state"`
}

// Health is the typed view of health.json. Unknown fields are preserved in
// the published copy but not rendered.
type Health struct {
	UpdatedAt    string           `json:"updatedAt"`
	Severity     string           `json:"severity"`
	Host         map[string]any   `json:"host"`
	Systems      map[string]Check `json:"systems"`
	Modules      map[string]Check `json:"modules"`
	Integrations map[string]Check `json:"integrations"`
	Notes        []string         `json:"notes"`
}

// Row is one line of a status table.
type Row struct {
	Name   string
	State  string
	Detail string
}

// HealthView is the template data of the status pages.
type HealthView struct {
	Severity    string
	UpdatedAt   string
	DiskFreePct string
	DiskFreeGB  string
	Loadavg     string
	SwapUsedMB  string
	Systems     []Row
	Modules     []Row
	Notes       []string
}

// systemRows lists the subsystems in display order.
var systemRows = []struct{ key, label string }{
	{"selfHeal", "Self-heal"},
	{"logging", "Logging"},
	{"monitoring", "Monitoring"},
	{"mail", "Mail"},
	{"tasks", "Tasks"},
}

func yesNo(v any) string {
	ok, isBool := v.(bool)
	switch {
	case !isBool:
		return "-"
	case ok:
		return "OK"
	default:
		return "BAD"
	}
}

func hostValue(host map[string]any, key string) string {
	v, ok := host[key]
	if !ok || v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// NewHealthView flattens a Health document into table rows. Integrations
// are shown among the key components.
func NewHealthView(h Health) HealthView {
	v := HealthView{
		Severity:    h.Severity,
		UpdatedAt:   h.UpdatedAt,
		DiskFreePct: hostValue(h.Host, "diskFreePct"),
		DiskFreeGB:  hostValue(h.Host, "diskFreeGB"),
		Loadavg:     hostValue(h.Host, "loadavg"),
		SwapUsedMB:  hostValue(h.Host, "swapUsedMB"),
		Notes:       h.Notes,
	}
	if v.Severity == "" {
		v.Severity = "unknown"
	}
	for _, s := range systemRows {
		c := h.Systems[s.key]
		v.Systems = append(v.Systems, Row{Name: s.label, State: yesNo(c.OK), Detail: c.Detail})
	}

	vpn := h.Modules["vpnProxy"]
	v.Modules = append(v.Modules, Row{Name: "VPN/Proxy", State: yesNo(vpn.OK), Detail: vpn.Detail})
	gw := h.Integrations["gateway"]
	v.Modules = append(v.Modules, Row{Name: "Gateway", State: yesNo(gw.OK), Detail: gw.URL})
	push := h.Integrations["gmailPush"].State
	if push == "" {
		push = "-"
	}
	v.Modules = append(v.Modules, Row{Name: "Gmail Push", State: push, Detail: "Pub/Sub"})
	return v
}

// SyncHealth publishes health.json to status/health.json and renders one
// status page per language. A missing file publishes an "unknown" status.
func (p *Publisher) SyncHealth(srcPath string) (*Result, error) {
	start := p.clock.Now()
	res := &Result{Job: "health"}

	raw, ok, err := readOptional(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read health file: %w", err)
	}

	var doc map[string]any
	var h Health
	if !ok {
		p.logger.Warn("Health file missing, publishing unknown status", "path", srcPath)
		h = Health{UpdatedAt: p.nowISO(), Severity: "unknown", Notes: []string{"health.json missing"}}
		doc = map[string]any{"updatedAt": h.UpdatedAt, "severity": h.Severity, "notes": h.Notes}
	} else {
		if err = json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse health file: %w", err)
		}
		if err = json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("failed to parse health fields: %w", err)
		}
	}

	if err = p.writeJSON("status/health.json", doc); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, "status/health.json")

	view := NewHealthView(h)
	for _, lang := range p.tm.Languages() {
		rel := editionPath(lang, "status")
		page := templating.Page{
			Lang:     lang,
			Path:     "/" + lang + "/status/",
			Section:  "Status",
			Subtitle: "Machine + subsystem health (updated hourly)",
			Data:     view,
		}
		if err = p.renderPage(rel, "status.tmpl.html", page); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, rel)
	}

	res.Duration = p.clock.Since(start)
	p.logger.Info("Health synced", "source", srcPath, "severity", view.Severity)
	return res, nil
}
