package markdown

import (
	"bytes"
	"strings"
	"testing"
)

func TestHighlighterCanonical(t *testing.T) {
	h := NewHighlighter(HighlightConfig{Aliases: map[string]string{"golang": "go"}})

	cases := map[string]string{
		"js":           "javascript",
		"TS":           "typescript",
		"py":           "python",
		"shell":        "bash",
		"sh":           "bash",
		"xml":          "html",
		"markup":       "html",
		"yml":          "yaml",
		"golang":       "go",
		"go {linenos}": "go",
		"rust":         "rust",
	}
	for input, want := range cases {
		if got := h.Canonical(input); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHighlighterAllowList(t *testing.T) {
	h := NewHighlighter(HighlightConfig{Languages: []string{"go", "js"}})

	if !h.Supports("go") || !h.Supports("javascript") || !h.Supports("js") {
		t.Fatalf("expected allowed languages to be supported")
	}
	if h.Supports("python") {
		t.Fatalf("expected python to be rejected by the allow-list")
	}
	if h.Supports("") {
		t.Fatalf("expected empty language to be unsupported")
	}
}

func TestHighlighterHighlightUnknownLanguage(t *testing.T) {
	h := NewHighlighter(HighlightConfig{})
	var buf bytes.Buffer
	if err := h.Highlight(&buf, "notalanguage", []byte("x")); err == nil {
		t.Fatalf("expected error for unknown language")
	}
}

func TestHighlighterWriteCSS(t *testing.T) {
	h := NewHighlighter(HighlightConfig{ClassPrefix: "hl-"})
	var buf bytes.Buffer
	if err := h.WriteCSS(&buf); err != nil {
		t.Fatalf("WriteCSS: %v", err)
	}
	if !strings.Contains(buf.String(), ".hl-") {
		t.Fatalf("expected prefixed classes in CSS, got %s", buf.String())
	}
}
