package markdown

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
)

const defaultAnchor = "section"

var anchorSeparators = regexp.MustCompile(`[^\w\x{4e00}-\x{9fa5}]+`)

// Anchor derives a heading identifier from its text: lower-cased, with every
// run of characters outside [A-Za-z0-9_] and the CJK unified ideographs block
// collapsed into a single hyphen.
func Anchor(text string) string {
	anchor := anchorSeparators.ReplaceAllString(strings.ToLower(text), "-")
	return strings.Trim(anchor, "-")
}

// anchorSet hands out unique anchors within one document.
type anchorSet map[string]int

func (s anchorSet) next(text string) string {
	base := Anchor(text)
	if base == "" {
		base = defaultAnchor
	}
	count, seen := s[base]
	s[base] = count + 1
	if !seen {
		return base
	}
	for {
		candidate := base + "-" + strconv.Itoa(count)
		if _, taken := s[candidate]; !taken {
			s[candidate] = 1
			return candidate
		}
		count++
		s[base] = count + 1
	}
}

// nodeText concatenates the visible text below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := child.(type) {
		case *ast.Text:
			b.Write(v.Value(source))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			// Typographer output holds entity source such as &rsquo;.
			if v.IsCode() {
				b.WriteString(html.UnescapeString(string(v.Value)))
			} else {
				b.Write(v.Value)
			}
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
