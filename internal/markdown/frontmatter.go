package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// Value holds a single frontmatter entry. Entries written in bracket notation
// are lists; everything else is a scalar string.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// FrontMatter maps header keys to their parsed values.
type FrontMatter map[string]Value

// String returns the scalar value stored under key. List values are joined
// with ", " so callers that only expect text still get something readable.
func (fm FrontMatter) String(key string) (string, bool) {
	value, ok := fm[key]
	if !ok {
		return "", false
	}
	if value.IsList {
		return strings.Join(value.List, ", "), true
	}
	return value.Scalar, true
}

// Strings returns the list stored under key. A non-empty scalar is promoted
// to a single element list.
func (fm FrontMatter) Strings(key string) ([]string, bool) {
	value, ok := fm[key]
	if !ok {
		return nil, false
	}
	if value.IsList {
		return append([]string{}, value.List...), true
	}
	if value.Scalar == "" {
		return []string{}, true
	}
	return []string{value.Scalar}, true
}

// FrontMatterParser splits a raw document into its header mapping and body.
// Implementations never fail: a missing or malformed header yields an empty
// mapping and the untouched source.
type FrontMatterParser interface {
	Parse(source []byte) (FrontMatter, []byte)
}

// FrontMatterMode names a FrontMatterParser implementation.
type FrontMatterMode string

const (
	FrontMatterSimple FrontMatterMode = "simple"
	FrontMatterYAML   FrontMatterMode = "yaml"
)

// NewFrontMatterParser returns the parser registered for mode, defaulting to
// the line based parser.
func NewFrontMatterParser(mode FrontMatterMode) FrontMatterParser {
	switch FrontMatterMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case FrontMatterYAML:
		return YAMLFrontMatter{}
	default:
		return SimpleFrontMatter{}
	}
}

var frontMatterPattern = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n(.*)\z`)

// SimpleFrontMatter parses `key: value` headers between `---` marker lines.
type SimpleFrontMatter struct{}

// Parse implements FrontMatterParser.
func (SimpleFrontMatter) Parse(source []byte) (FrontMatter, []byte) {
	return ParseFrontMatter(source)
}

// ParseFrontMatter extracts the header mapping and the remaining body from
// source using the line based rules.
func ParseFrontMatter(source []byte) (FrontMatter, []byte) {
	match := frontMatterPattern.FindSubmatchIndex(source)
	if match == nil {
		return FrontMatter{}, source
	}

	header := source[match[2]:match[3]]
	body := source[match[4]:match[5]]

	fm := FrontMatter{}
	for _, raw := range bytes.Split(header, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fm[key] = parseValue(value)
	}
	return fm, body
}

func parseValue(raw string) Value {
	value := unquote(strings.TrimSpace(raw))
	if len(value) >= 2 && strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		inner := strings.TrimSpace(value[1 : len(value)-1])
		items := []string{}
		if inner != "" {
			for _, item := range strings.Split(inner, ",") {
				items = append(items, stripQuotes(strings.TrimSpace(item)))
			}
		}
		return Value{List: items, IsList: true}
	}
	return Value{Scalar: value}
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}

// stripQuotes removes one leading and one trailing quote character
// independently, which is how list items are unquoted.
func stripQuotes(value string) string {
	if value != "" && (value[0] == '"' || value[0] == '\'') {
		value = value[1:]
	}
	if value != "" && (value[len(value)-1] == '"' || value[len(value)-1] == '\'') {
		value = value[:len(value)-1]
	}
	return value
}

// YAMLFrontMatter decodes YAML, TOML or JSON headers through adrg/frontmatter.
type YAMLFrontMatter struct{}

// Parse implements FrontMatterParser.
func (YAMLFrontMatter) Parse(source []byte) (FrontMatter, []byte) {
	var raw map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(source), &raw)
	if err != nil || raw == nil {
		return FrontMatter{}, source
	}

	fm := make(FrontMatter, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fm[key] = toValue(value)
	}
	return fm, body
}

func toValue(value any) Value {
	switch v := value.(type) {
	case nil:
		return Value{}
	case string:
		return Value{Scalar: strings.TrimSpace(v)}
	case time.Time:
		return Value{Scalar: v.Format(time.DateOnly)}
	case []string:
		return Value{List: append([]string{}, v...), IsList: true}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, toValue(item).Scalar)
		}
		return Value{List: items, IsList: true}
	default:
		return Value{Scalar: fmt.Sprint(v)}
	}
}
