package templating

import (
	"html/template"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// zhMessages holds the Chinese text for every English key used by the
// embedded templates. English keys translate to themselves.
var zhMessages = [][2]string{
	{"Home", "首页"},
	{"Logs", "日志"},
	{"Tasks", "任务"},
	{"Status", "状态"},
	{"Overall", "总体"},
	{"Systems", "子系统"},
	{"Name", "名称"},
	{"Detail", "细节"},
	{"Notes", "备注"},
	{"none", "无"},
	{"Raw", "原始数据"},
	{"Task list", "任务清单"},
	{"No tasks yet", "暂无任务"},
	{"Key components", "重要功能组件"},
	{"Self-heal", "自救系统"},
	{"Logging", "日志系统"},
	{"Monitoring", "监控系统"},
	{"Mail", "邮件系统"},
	{"VPN/Proxy", "VPN/代理"},
	{"Daily activity log", "每日活动日志"},
	{"Index", "索引"},
	{"Notes are published as Markdown files.", "日志以 Markdown 文件发布。"},
	{"Task list (persisted automatically; no reminders by default)", "任务清单（自动沉淀，默认不提醒）"},
	{"Machine + subsystem health (updated hourly)", "机器与子系统健康状态（每小时更新）"},
	{"Input: send 'todo: ...' in Telegram. No reminders by default; tasks are persisted to this page.", "入口：Telegram 发『任务：...』或『todo: ...』；默认不提醒，只沉淀到页面。"},
}

// newCatalog builds the message catalog used by tr.
func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, m := range zhMessages {
		if err := b.SetString(language.English, m[0], m[0]); err != nil {
			return nil, err
		}
		if err := b.SetString(language.Chinese, m[0], m[1]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// printer returns a cached message printer for the language code.
func (tm *TemplateManager) printer(lang string) *message.Printer {
	tm.printersMu.Lock()
	defer tm.printersMu.Unlock()
	if p, ok := tm.printers[lang]; ok {
		return p
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag, message.Catalog(tm.catalog))
	tm.printers[lang] = p
	return p
}

// tr translates key into lang. Unknown keys are returned as-is.
func (tm *TemplateManager) tr(lang, key string) string {
	if _, known := tm.messageKeys[key]; !known {
		return key
	}
	return tm.printer(lang).Sprintf(key)
}

// htmlLang returns the <html lang> value for an edition.
func (tm *TemplateManager) htmlLang(lang string) string {
	l := tm.config.language(lang)
	if l.HTMLLang != "" {
		return l.HTMLLang
	}
	return l.Code
}

// brand returns the site name for an edition.
func (tm *TemplateManager) brand(lang string) string {
	return tm.config.language(lang).Brand
}

// sevColor maps a health severity to its indicator colour.
func sevColor(sev string) template.CSS {
	switch strings.ToLower(sev) {
	case "ok":
		return "#2ecc71"
	case "warn":
		return "#f1c40f"
	case "crit":
		return "#e74c3c"
	default:
		return "#95a5a6"
	}
}

// join concatenates non-empty parts with sep.
func join(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
