package markdown

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark/util"
)

// RuleKey identifies an entry in the render rule table.
type RuleKey string

const (
	// RuleCode renders fenced and indented code blocks without a more
	// specific language rule.
	RuleCode RuleKey = "code"
	// RuleTable wraps GFM tables.
	RuleTable RuleKey = "table"
	// RuleLink renders inline links and autolinks.
	RuleLink RuleKey = "link"
	// RuleHeading renders ATX and setext headings.
	RuleHeading RuleKey = "heading"

	codeRulePrefix      = "code:"
	containerRulePrefix = "container:"
)

// CodeRuleKey returns the rule key for a specific fence language.
func CodeRuleKey(language string) RuleKey {
	return RuleKey(codeRulePrefix + strings.ToLower(strings.TrimSpace(language)))
}

// ContainerRuleKey returns the rule key for a callout kind. Registering a rule
// under this key also enables the `::: kind` syntax for that kind.
func ContainerRuleKey(kind string) RuleKey {
	return RuleKey(containerRulePrefix + strings.ToLower(strings.TrimSpace(kind)))
}

// Element carries the data a rule needs to render one node.
type Element struct {
	Key RuleKey

	// Code blocks.
	Language string
	Code     []byte

	// Callout containers.
	Variant string
	Title   string

	// Links. Href is already URL and HTML escaped.
	Href      string
	LinkTitle string
	Label     string
	External  bool
	AutoLink  bool

	// Headings.
	Level  int
	Anchor string
}

// Rule renders a single element. Container style elements (links, headings,
// callouts, tables) are called twice, once on entry and once on exit, with
// their children rendered in between. Code elements are only entered.
type Rule func(w util.BufWriter, el *Element, entering bool) error

// Registration binds a rule to a key. Registrations are applied in order, so
// a later registration replaces an earlier one for the same key.
type Registration struct {
	Key  RuleKey
	Rule Rule
}

// ruleTable is the frozen key to rule mapping used during rendering.
type ruleTable struct {
	rules      map[RuleKey]Rule
	containers map[string]struct{}
}

func newRuleTable(regs []Registration) ruleTable {
	table := ruleTable{
		rules:      make(map[RuleKey]Rule, len(regs)),
		containers: map[string]struct{}{},
	}
	for _, reg := range regs {
		if reg.Key == "" {
			continue
		}
		if reg.Rule == nil {
			delete(table.rules, reg.Key)
			continue
		}
		table.rules[reg.Key] = reg.Rule
	}
	for key := range table.rules {
		if kind, ok := strings.CutPrefix(string(key), containerRulePrefix); ok && kind != "" {
			table.containers[kind] = struct{}{}
		}
	}
	return table
}

func (t ruleTable) lookup(key RuleKey) (Rule, bool) {
	rule, ok := t.rules[key]
	return rule, ok
}

// code resolves the language specific rule first and falls back to RuleCode.
func (t ruleTable) code(language string) (RuleKey, Rule) {
	if language != "" {
		key := CodeRuleKey(language)
		if rule, ok := t.rules[key]; ok {
			return key, rule
		}
	}
	return RuleCode, t.rules[RuleCode]
}

func (t ruleTable) hasContainer(kind string) bool {
	_, ok := t.containers[kind]
	return ok
}

// DefaultCalloutKinds lists the callout kinds registered by DefaultRules.
var DefaultCalloutKinds = []string{"tip", "warning", "danger", "info"}

// DefaultRules returns the built-in rule registrations. The highlighter backs
// the generic code rule; a nil highlighter renders every block as plain text.
func DefaultRules(h *Highlighter) []Registration {
	regs := []Registration{
		{Key: RuleCode, Rule: HighlightRule(h)},
		{Key: RuleTable, Rule: TableRule},
		{Key: RuleLink, Rule: LinkRule},
		{Key: RuleHeading, Rule: HeadingRule},
	}
	for _, kind := range DefaultCalloutKinds {
		regs = append(regs, Registration{Key: ContainerRuleKey(kind), Rule: CalloutRule})
	}
	return regs
}

// HighlightRule renders code through h. Languages the highlighter does not
// know are written as escaped plain text.
func HighlightRule(h *Highlighter) Rule {
	return func(w util.BufWriter, el *Element, entering bool) error {
		if !entering {
			return nil
		}
		if h == nil || !h.Supports(el.Language) {
			WritePlainCode(w, el.Language, el.Code)
			return nil
		}
		language := h.Canonical(el.Language)
		writeCodeOpen(w, language)
		if err := h.Highlight(w, language, el.Code); err != nil {
			return err
		}
		writeCodeClose(w)
		return nil
	}
}

// WritePlainCode writes code as escaped text inside the standard code wrapper.
func WritePlainCode(w util.BufWriter, language string, code []byte) {
	writeCodeOpen(w, language)
	_, _ = w.Write(util.EscapeHTML(code))
	writeCodeClose(w)
}

func writeCodeOpen(w util.BufWriter, language string) {
	class := languageClass(language)
	_, _ = fmt.Fprintf(w, `<pre class="%s"><code class="%s">`, class, class)
}

func writeCodeClose(w util.BufWriter) {
	_, _ = w.WriteString("</code></pre>\n")
}

func languageClass(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "text"
	}
	return "language-" + html.EscapeString(language)
}

// CalloutRule renders a titled callout box.
func CalloutRule(w util.BufWriter, el *Element, entering bool) error {
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return nil
	}
	title := el.Title
	if title == "" {
		title = strings.ToUpper(el.Variant)
	}
	_, _ = fmt.Fprintf(w, "<div class=\"custom-container %s\">\n", html.EscapeString(el.Variant))
	_, _ = fmt.Fprintf(w, "<p class=\"custom-container-title\">%s</p>\n", html.EscapeString(title))
	return nil
}

// TableRule wraps tables in a scroll container.
func TableRule(w util.BufWriter, _ *Element, entering bool) error {
	if entering {
		_, _ = w.WriteString("<div class=\"table-container\">\n<table>\n")
		return nil
	}
	_, _ = w.WriteString("</table>\n</div>\n")
	return nil
}

// LinkRule renders anchors and opens external destinations in a new tab.
func LinkRule(w util.BufWriter, el *Element, entering bool) error {
	if !entering {
		if !el.AutoLink {
			_, _ = w.WriteString("</a>")
		}
		return nil
	}
	_, _ = w.WriteString(`<a href="`)
	_, _ = w.WriteString(el.Href)
	_ = w.WriteByte('"')
	if el.LinkTitle != "" {
		_, _ = w.WriteString(` title="`)
		_, _ = w.WriteString(html.EscapeString(el.LinkTitle))
		_ = w.WriteByte('"')
	}
	if el.External {
		_, _ = w.WriteString(` target="_blank" rel="noopener noreferrer"`)
	}
	_ = w.WriteByte('>')
	if el.AutoLink {
		_, _ = w.WriteString(html.EscapeString(el.Label))
		_, _ = w.WriteString("</a>")
	}
	return nil
}

// HeadingRule renders headings with their anchor id.
func HeadingRule(w util.BufWriter, el *Element, entering bool) error {
	level := el.Level
	if level < 1 || level > 6 {
		level = 6
	}
	if entering {
		if el.Anchor == "" {
			_, _ = fmt.Fprintf(w, "<h%d>", level)
			return nil
		}
		_, _ = fmt.Fprintf(w, "<h%d id=\"%s\">", level, html.EscapeString(el.Anchor))
		return nil
	}
	_, _ = fmt.Fprintf(w, "</h%d>\n", level)
	return nil
}
