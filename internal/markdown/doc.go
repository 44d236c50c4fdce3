// Package markdown turns markdown documents into HTML.
//
// It covers three steps. The Loader enumerates sources from an fs.FS using
// doublestar globs. A FrontMatterParser splits each source into a header
// mapping and a body. The Renderer runs the body through goldmark with a
// rule table that owns code blocks, `::: kind` callouts, tables, links and
// headings.
//
// Rules are plain functions keyed by RuleKey. The table is frozen when the
// Renderer is built, so renderers can be shared between goroutines. A code
// rule that fails or panics only degrades its own block to escaped text and
// the failure is reported as a Diagnostic on the Result.
package markdown
