package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindCallout is the node kind of `::: kind` containers.
var KindCallout = ast.NewNodeKind("Callout")

// Callout is a block container opened by a `::: kind [title]` line and closed
// by a line holding at least as many colons.
type Callout struct {
	ast.BaseBlock

	Variant string
	Title   string

	fence int
}

// Kind implements ast.Node.
func (n *Callout) Kind() ast.NodeKind {
	return KindCallout
}

// Dump implements ast.Node.
func (n *Callout) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Variant": n.Variant,
		"Title":   n.Title,
	}, nil)
}

const minCalloutFence = 3

// calloutParser only opens containers for kinds present in the rule table.
type calloutParser struct {
	kinds func(string) bool
}

func newCalloutParser(kinds func(string) bool) parser.BlockParser {
	return &calloutParser{kinds: kinds}
}

func (p *calloutParser) Trigger() []byte {
	return []byte{':'}
}

func (p *calloutParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || line[pos] != ':' {
		return nil, parser.NoChildren
	}
	i := pos
	for ; i < len(line) && line[i] == ':'; i++ {
	}
	fence := i - pos
	if fence < minCalloutFence {
		return nil, parser.NoChildren
	}

	info := strings.TrimSpace(string(line[i:]))
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return nil, parser.NoChildren
	}
	// Kinds match exactly; `::: TIP` stays a paragraph.
	kind := fields[0]
	if !p.kinds(kind) {
		return nil, parser.NoChildren
	}

	node := &Callout{
		Variant: kind,
		Title:   strings.TrimSpace(info[len(fields[0]):]),
		fence:   fence,
	}
	advanceLine(reader, line, segment)
	return node, parser.HasChildren
}

func (p *calloutParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	callout := node.(*Callout)

	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 && pos < len(line) {
		i := pos
		for ; i < len(line) && line[i] == ':'; i++ {
		}
		if i-pos >= callout.fence && util.IsBlank(line[i:]) {
			advanceLine(reader, line, segment)
			return parser.Close
		}
	}
	return parser.Continue | parser.HasChildren
}

func (p *calloutParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *calloutParser) CanInterruptParagraph() bool {
	return true
}

func (p *calloutParser) CanAcceptIndentedLine() bool {
	return false
}

// advanceLine consumes the rest of the current line, leaving the newline.
func advanceLine(reader text.Reader, line []byte, segment text.Segment) {
	newline := 0
	if bytes.HasSuffix(line, []byte("\n")) {
		newline = 1
	}
	reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
}
