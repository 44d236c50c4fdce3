package markdown

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// TextCodeRenderDegraded marks a render where at least one rule failed and
// fell back to plain output.
const TextCodeRenderDegraded = "MARKDOWN_RENDER_DEGRADED"

// rulePriority places the rule renderer ahead of the stock HTML (1000) and
// table (500) renderers so its registrations win.
const rulePriority = 100

// calloutParserPriority sits just after the fenced code parser.
const calloutParserPriority = 720

// Diagnostic describes a rule failure that was recovered during rendering.
type Diagnostic struct {
	Rule     RuleKey `json:"rule"`
	Language string  `json:"language,omitempty"`
	Line     int     `json:"line,omitempty"`
	Err      error   `json:"-"`
	Message  string  `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", d.Rule, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Rule, d.Message)
}

// Result is the output of a render pass.
type Result struct {
	HTML        string
	Diagnostics []Diagnostic
}

// Degraded reports whether any rule fell back during the render.
func (r Result) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// Err folds the diagnostics into a single operation error. It returns nil
// for clean renders. The HTML is complete either way.
func (r Result) Err() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Diagnostics))
	for _, diag := range r.Diagnostics {
		errs = append(errs, fmt.Errorf("%s: %w", diag.Rule, diag.Err))
	}
	return goerrors.Wrap(errors.Join(errs...), goerrors.CategoryOperation, "markdown render degraded").
		WithTextCode(TextCodeRenderDegraded)
}

// Renderer converts markdown bodies to HTML through a frozen rule table.
// Renderer values are immutable and safe for concurrent use; every Render call
// builds its own goldmark engine and per-document state.
type Renderer struct {
	table       ruleTable
	logger      interfaces.Logger
	unsafe      bool
	typographer bool
	linkify     bool
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	highlighter *Highlighter
	extra       []Registration
	logger      interfaces.Logger
	unsafe      bool
	typographer bool
	linkify     bool
}

// WithRule registers or replaces the rule for key. A nil rule removes it.
func WithRule(key RuleKey, rule Rule) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.extra = append(cfg.extra, Registration{Key: key, Rule: rule})
	}
}

// WithRules appends a batch of registrations.
func WithRules(regs ...Registration) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.extra = append(cfg.extra, regs...)
	}
}

// WithHighlighter sets the highlighter backing the default code rule.
func WithHighlighter(h *Highlighter) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.highlighter = h
	}
}

// WithLogger sets the logger used for rule failure warnings.
func WithLogger(logger interfaces.Logger) RendererOption {
	return func(cfg *rendererConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithUnsafeHTML toggles raw HTML passthrough. It is on by default.
func WithUnsafeHTML(enabled bool) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.unsafe = enabled
	}
}

// WithTypographer toggles smart quotes and dashes. It is on by default.
func WithTypographer(enabled bool) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.typographer = enabled
	}
}

// WithLinkify toggles bare URL autolinking. It is on by default.
func WithLinkify(enabled bool) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.linkify = enabled
	}
}

// NewRenderer freezes the default rules plus any registered overrides.
func NewRenderer(opts ...RendererOption) *Renderer {
	cfg := rendererConfig{
		logger:      logging.NoOp(),
		unsafe:      true,
		typographer: true,
		linkify:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.highlighter == nil {
		cfg.highlighter = NewHighlighter(HighlightConfig{})
	}

	regs := append(DefaultRules(cfg.highlighter), cfg.extra...)
	return &Renderer{
		table:       newRuleTable(regs),
		logger:      cfg.logger,
		unsafe:      cfg.unsafe,
		typographer: cfg.typographer,
		linkify:     cfg.linkify,
	}
}

// Render converts source to HTML. Rule failures never abort the render; they
// are reported through Result.Diagnostics.
func (r *Renderer) Render(source []byte) Result {
	state := &renderState{anchors: anchorSet{}}
	engine := r.newEngine(state)

	var buf bytes.Buffer
	if err := engine.Convert(source, &buf); err != nil {
		// goldmark only fails on writer errors; bytes.Buffer never returns one.
		state.add(Diagnostic{Rule: "document", Err: err, Message: err.Error()})
	}
	return Result{HTML: buf.String(), Diagnostics: state.diagnostics}
}

// RenderString renders body and discards diagnostics.
func (r *Renderer) RenderString(body string) string {
	return r.Render([]byte(body)).HTML
}

// HasRule reports whether key is registered.
func (r *Renderer) HasRule(key RuleKey) bool {
	_, ok := r.table.lookup(key)
	return ok
}

func (r *Renderer) newEngine(state *renderState) goldmark.Markdown {
	extensions := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.CJK,
	}
	if r.linkify {
		extensions = append(extensions, extension.Linkify)
	}
	if r.typographer {
		extensions = append(extensions, extension.Typographer)
	}

	rendererOptions := []renderer.Option{
		renderer.WithNodeRenderers(
			util.Prioritized(&ruleRenderer{
				table:  r.table,
				state:  state,
				logger: r.logger,
				unsafe: r.unsafe,
			}, rulePriority),
		),
	}
	if r.unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithExtensions(extensions...),
		goldmark.WithRendererOptions(rendererOptions...),
	}
	if len(r.table.containers) > 0 {
		engineOptions = append(engineOptions, goldmark.WithParserOptions(
			parser.WithBlockParsers(
				util.Prioritized(newCalloutParser(r.table.hasContainer), calloutParserPriority),
			),
		))
	}
	return goldmark.New(engineOptions...)
}

// renderState is owned by a single Render call.
type renderState struct {
	anchors     anchorSet
	diagnostics []Diagnostic
}

func (s *renderState) add(diag Diagnostic) {
	s.diagnostics = append(s.diagnostics, diag)
}

// ruleRenderer dispatches goldmark nodes to the rule table. Kinds without a
// registered rule are left to the stock renderers.
type ruleRenderer struct {
	table  ruleTable
	state  *renderState
	logger interfaces.Logger
	unsafe bool
}

func (r *ruleRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	if r.hasCodeRules() {
		reg.Register(ast.KindFencedCodeBlock, r.renderCode)
		reg.Register(ast.KindCodeBlock, r.renderCode)
	}
	if _, ok := r.table.lookup(RuleTable); ok {
		reg.Register(extast.KindTable, r.renderTable)
	}
	if _, ok := r.table.lookup(RuleLink); ok {
		reg.Register(ast.KindLink, r.renderLink)
		reg.Register(ast.KindAutoLink, r.renderAutoLink)
	}
	if _, ok := r.table.lookup(RuleHeading); ok {
		reg.Register(ast.KindHeading, r.renderHeading)
	}
	if len(r.table.containers) > 0 {
		reg.Register(KindCallout, r.renderCallout)
	}
}

func (r *ruleRenderer) hasCodeRules() bool {
	for key := range r.table.rules {
		if key == RuleCode || strings.HasPrefix(string(key), codeRulePrefix) {
			return true
		}
	}
	return false
}

func (r *ruleRenderer) renderCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var language string
	if fenced, ok := node.(*ast.FencedCodeBlock); ok {
		language = normalizeLanguage(string(fenced.Language(source)))
	}
	code := blockText(node, source)

	key, rule := r.table.code(language)
	if rule == nil {
		WritePlainCode(w, language, code)
		return ast.WalkSkipChildren, nil
	}

	el := &Element{Key: key, Language: language, Code: code}

	// Rules write into a scratch buffer so a failure never leaves half a
	// block in the output.
	var scratch bytes.Buffer
	bw := bufio.NewWriter(&scratch)
	err := invokeRule(rule, bw, el, true)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		line := codeLine(node, source)
		r.state.add(Diagnostic{
			Rule:     key,
			Language: language,
			Line:     line,
			Err:      err,
			Message:  err.Error(),
		})
		r.logger.Warn("markdown.highlight.failed",
			"rule", string(key),
			"language", language,
			"line", line,
			"error", err,
		)
		WritePlainCode(w, language, code)
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.Write(scratch.Bytes())
	return ast.WalkSkipChildren, nil
}

func (r *ruleRenderer) renderTable(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	return r.apply(w, RuleTable, &Element{Key: RuleTable}, entering)
}

func (r *ruleRenderer) renderLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	el := &Element{
		Key:       RuleLink,
		LinkTitle: string(n.Title),
		External:  isExternal(n.Destination),
	}
	if r.unsafe || !html.IsDangerousURL(n.Destination) {
		el.Href = string(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	return r.apply(w, RuleLink, el, entering)
}

func (r *ruleRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.AutoLink)
	url := n.URL(source)
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower(url), []byte("mailto:")) {
		url = append([]byte("mailto:"), url...)
	}
	el := &Element{
		Key:      RuleLink,
		Href:     string(util.EscapeHTML(util.URLEscape(url, false))),
		Label:    string(n.Label(source)),
		External: isExternal(url),
		AutoLink: true,
	}
	if _, err := r.apply(w, RuleLink, el, true); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

func (r *ruleRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	el := &Element{Key: RuleHeading, Level: n.Level}
	if entering {
		el.Anchor = r.state.anchors.next(nodeText(n, source))
	}
	return r.apply(w, RuleHeading, el, entering)
}

func (r *ruleRenderer) renderCallout(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Callout)
	key := ContainerRuleKey(n.Variant)
	return r.apply(w, key, &Element{Key: key, Variant: n.Variant, Title: n.Title}, entering)
}

// apply runs a wrapping rule. Failures are recorded and rendering continues
// with whatever the rule managed to write.
func (r *ruleRenderer) apply(w util.BufWriter, key RuleKey, el *Element, entering bool) (ast.WalkStatus, error) {
	rule, ok := r.table.lookup(key)
	if !ok {
		return ast.WalkContinue, nil
	}
	if err := invokeRule(rule, w, el, entering); err != nil {
		r.state.add(Diagnostic{Rule: key, Err: err, Message: err.Error()})
		r.logger.Warn("markdown.rule.failed", "rule", string(key), "error", err)
	}
	return ast.WalkContinue, nil
}

func invokeRule(rule Rule, w util.BufWriter, el *Element, entering bool) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("rule %s panicked: %v", el.Key, recovered)
		}
	}()
	return rule(w, el, entering)
}

func blockText(node ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
	return buf.Bytes()
}

// codeLine returns the 1-based source line of the block's opening line.
func codeLine(node ast.Node, source []byte) int {
	start := -1
	offset := 0
	if fenced, ok := node.(*ast.FencedCodeBlock); ok && fenced.Info != nil {
		start = fenced.Info.Segment.Start
	} else if node.Lines().Len() > 0 {
		start = node.Lines().At(0).Start
		if node.Kind() == ast.KindFencedCodeBlock {
			offset = -1
		}
	}
	if start < 0 || start > len(source) {
		return 0
	}
	return bytes.Count(source[:start], []byte("\n")) + 1 + offset
}

func isExternal(destination []byte) bool {
	dest := strings.ToLower(strings.TrimSpace(string(destination)))
	return strings.HasPrefix(dest, "//") ||
		strings.HasPrefix(dest, "http://") ||
		strings.HasPrefix(dest, "https://")
}
