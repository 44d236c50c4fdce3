package markdown

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultHighlightStyle is the chroma style used for generated CSS.
const DefaultHighlightStyle = "github"

var defaultLanguageAliases = map[string]string{
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"sh":     "bash",
	"shell":  "bash",
	"xml":    "html",
	"markup": "html",
	"yml":    "yaml",
}

// HighlightConfig tunes the chroma highlighter.
type HighlightConfig struct {
	// Style names the chroma style used by WriteCSS.
	Style string
	// Languages restricts highlighting to the listed canonical languages.
	// An empty list allows every lexer chroma knows about.
	Languages []string
	// Aliases extends the built-in alias table (js, ts, py, shell...).
	Aliases map[string]string
	// ClassPrefix is prepended to every generated CSS class.
	ClassPrefix string
	// TabWidth controls tab expansion; zero keeps the chroma default.
	TabWidth int
}

// Highlighter tokenises code with chroma and emits class based markup.
// It holds no per-call state and is safe for concurrent use.
type Highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	aliases   map[string]string
	allowed   map[string]struct{}
}

// NewHighlighter constructs a Highlighter from cfg.
func NewHighlighter(cfg HighlightConfig) *Highlighter {
	styleName := strings.TrimSpace(cfg.Style)
	if styleName == "" {
		styleName = DefaultHighlightStyle
	}

	aliases := make(map[string]string, len(defaultLanguageAliases)+len(cfg.Aliases))
	for alias, language := range defaultLanguageAliases {
		aliases[alias] = language
	}
	for alias, language := range cfg.Aliases {
		alias = normalizeLanguage(alias)
		if alias == "" {
			continue
		}
		aliases[alias] = normalizeLanguage(language)
	}

	var allowed map[string]struct{}
	if len(cfg.Languages) > 0 {
		allowed = make(map[string]struct{}, len(cfg.Languages))
		for _, language := range cfg.Languages {
			language = normalizeLanguage(language)
			if canonical, ok := aliases[language]; ok {
				language = canonical
			}
			if language != "" {
				allowed[language] = struct{}{}
			}
		}
	}

	options := []chromahtml.Option{
		chromahtml.WithClasses(true),
		chromahtml.PreventSurroundingPre(true),
	}
	if cfg.ClassPrefix != "" {
		options = append(options, chromahtml.ClassPrefix(cfg.ClassPrefix))
	}
	if cfg.TabWidth > 0 {
		options = append(options, chromahtml.TabWidth(cfg.TabWidth))
	}

	return &Highlighter{
		style:     styles.Get(styleName),
		formatter: chromahtml.New(options...),
		aliases:   aliases,
		allowed:   allowed,
	}
}

// Canonical maps a fence language to its canonical name.
func (h *Highlighter) Canonical(language string) string {
	language = normalizeLanguage(language)
	if canonical, ok := h.aliases[language]; ok {
		return canonical
	}
	return language
}

// Supports reports whether language resolves to a permitted chroma lexer.
func (h *Highlighter) Supports(language string) bool {
	return h.lexer(language) != nil
}

func (h *Highlighter) lexer(language string) chroma.Lexer {
	language = h.Canonical(language)
	if language == "" {
		return nil
	}
	if h.allowed != nil {
		if _, ok := h.allowed[language]; !ok {
			return nil
		}
	}
	return lexers.Get(language)
}

// Highlight writes the highlighted token spans for code. The caller owns the
// surrounding pre/code wrapper.
func (h *Highlighter) Highlight(w io.Writer, language string, code []byte) error {
	lexer := h.lexer(language)
	if lexer == nil {
		return fmt.Errorf("highlight: no lexer for %q", language)
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, string(code))
	if err != nil {
		return fmt.Errorf("highlight %s: tokenise: %w", language, err)
	}
	if err := h.formatter.Format(w, h.style, iterator); err != nil {
		return fmt.Errorf("highlight %s: format: %w", language, err)
	}
	return nil
}

// WriteCSS writes the stylesheet matching the generated classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}

func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	// Fence info strings may carry attributes after the language name.
	if idx := strings.IndexAny(language, " \t{"); idx >= 0 {
		language = language[:idx]
	}
	return language
}
