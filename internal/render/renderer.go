// Package render is the reading-mode pipeline: goldmark renders markdown,
// then the admonition matcher rewrites the resulting element tree.
package render

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/style"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extensionast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	mdLineAttribute = "data-md-line"
	assetPrefix     = "/@mdfs/"
)

//go:embed page.html
var pageTemplate string

// SettingsFunc returns the enabled flags to use for one render.
type SettingsFunc func() admonition.Settings

// Renderer converts markdown with admonitions into HTML.
type Renderer struct {
	md       goldmark.Markdown
	settings SettingsFunc
	styles   bool
	assets   bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSettings sets the source of the enabled flags. All types are enabled
// without it.
func WithSettings(fn SettingsFunc) Option {
	return func(r *Renderer) { r.settings = fn }
}

// WithAssetRewrite controls whether local images point at the preview's
// asset route. Standalone pages keep their relative paths.
func WithAssetRewrite(on bool) Option {
	return func(r *Renderer) { r.assets = on }
}

// WithStyles controls whether pages embed the admonition stylesheet.
func WithStyles(on bool) Option {
	return func(r *Renderer) { r.styles = on }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		settings: admonition.DefaultSettings,
		styles:   true,
		assets:   true,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.md = goldmark.New(
		goldmark.WithExtensions(
			&fenceExtension{convert: r.convertBody},
			alertcallouts.AlertCallouts,
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Linkify,
			highlighting.NewHighlighting(
				highlighting.WithWrapperRenderer(renderHighlightedCodeWrapper),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return r
}

// ConvertFragment renders source without a source path.
func (r *Renderer) ConvertFragment(source []byte) (string, error) {
	return r.ConvertFragmentWithSourcePath(source, "")
}

// ConvertFragmentWithSourcePath renders source into an HTML fragment with
// admonitions converted and data-md-line attributes on block elements.
//
// sourcePath resolves relative images to the preview's asset route unless
// the rewrite is turned off.
func (r *Renderer) ConvertFragmentWithSourcePath(source []byte, sourcePath string) (string, error) {
	enabled := r.settings()
	fragment, err := r.convert(source, sourcePath, enabled, true)
	if err != nil {
		return "", err
	}
	return PostProcess(fragment, enabled, r.inline(sourcePath, enabled))
}

// RenderPage returns a standalone HTML page for source.
func (r *Renderer) RenderPage(source []byte, sourcePath string) (string, error) {
	fragment, err := r.ConvertFragmentWithSourcePath(source, sourcePath)
	if err != nil {
		return "", err
	}
	return r.page(fragment), nil
}

// RenderShell returns the empty page the browser loads before the first
// WebSocket render message.
func (r *Renderer) RenderShell() string {
	return r.page("")
}

func (r *Renderer) page(fragment string) string {
	css := ""
	if r.styles {
		css = style.ReadingCSS()
	}
	page := strings.Replace(pageTemplate, "{{STYLES}}", css, 1)
	return strings.Replace(page, "{{CONTENT}}", fragment, 1)
}

func (r *Renderer) convert(source []byte, sourcePath string, enabled admonition.Settings, annotate bool) (string, error) {
	pc := parser.NewContext()
	pc.Set(settingsKey, enabled)
	pc.Set(sourcePathKey, sourcePath)

	doc := r.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))
	decorateAST(doc, source, sourcePath, annotate, r.assets)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// convertBody renders the body of an admonition fence with the settings of
// the enclosing render. Line numbers inside the body are relative to the
// fence, so they are not attached.
func (r *Renderer) convertBody(source []byte, sourcePath string, enabled admonition.Settings) (string, error) {
	return r.convert(source, sourcePath, enabled, false)
}

// inline is the markdown-to-element function used for single-line content.
func (r *Renderer) inline(sourcePath string, enabled admonition.Settings) InlineFunc {
	return func(markup string) ([]*xhtml.Node, error) {
		fragment, err := r.convert([]byte(markup), sourcePath, enabled, false)
		if err != nil {
			return nil, err
		}
		context := &xhtml.Node{Type: xhtml.ElementNode, DataAtom: atom.Div, Data: "div"}
		nodes, err := xhtml.ParseFragment(strings.NewReader(fragment), context)
		if err != nil {
			return nil, fmt.Errorf("parse inline content: %w", err)
		}
		return nodes, nil
	}
}

// decorateAST attaches data-md-line to block elements for cursor sync and
// points local images at the preview's asset route.
func decorateAST(doc ast.Node, source []byte, sourcePath string, annotate, assets bool) {
	baseDir := ""
	if sourcePath != "" {
		baseDir = filepath.Dir(sourcePath)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if annotate && shouldAnnotateNode(n) {
			if offset, ok := firstNodeOffset(n); ok {
				n.SetAttributeString(mdLineAttribute, strconv.Itoa(offsetToLine(source, offset)))
			}
		}

		if img, ok := n.(*ast.Image); ok && assets {
			rewriteImage(img, baseDir)
		}
		return ast.WalkContinue, nil
	})
}

func rewriteImage(img *ast.Image, baseDir string) {
	dest := strings.TrimSpace(string(img.Destination))
	if dest == "" || isRemoteDestination(dest) {
		return
	}

	var resolved string
	switch {
	case filepath.IsAbs(dest):
		resolved = filepath.Clean(dest)
	case baseDir != "":
		resolved = filepath.Clean(filepath.Join(baseDir, dest))
	default:
		return
	}

	img.Destination = []byte(AssetURL(resolved))
	img.SetAttributeString("loading", "lazy")
	img.SetAttributeString("decoding", "async")
}

// AssetURL encodes an absolute file path into the preview's asset route.
func AssetURL(path string) string {
	return assetPrefix + base64.RawURLEncoding.EncodeToString([]byte(path))
}

func isRemoteDestination(dest string) bool {
	lower := strings.ToLower(dest)
	for _, prefix := range []string{"http://", "https://", "data:", "blob:", "file://", "//", "#", assetPrefix} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// shouldAnnotateNode reports whether n maps directly to source lines.
func shouldAnnotateNode(n ast.Node) bool {
	switch n.Kind() {
	case ast.KindHeading,
		ast.KindParagraph,
		ast.KindBlockquote,
		ast.KindFencedCodeBlock,
		ast.KindList,
		ast.KindListItem,
		ast.KindThematicBreak,
		extensionast.KindTable,
		KindAdmonitionFence:
		return true
	default:
		return false
	}
}

// firstNodeOffset returns the byte offset of the first source line of n,
// searching children for nodes without lines of their own (lists).
func firstNodeOffset(n ast.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, true
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if offset, ok := firstNodeOffset(child); ok {
			return offset, true
		}
	}
	return 0, false
}

// offsetToLine converts a byte offset to a 1-based line number.
func offsetToLine(source []byte, offset int) int {
	offset = max(0, min(offset, len(source)))
	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}

// renderHighlightedCodeWrapper keeps data-md-line on highlighted code blocks,
// whose own attributes the highlighter drops. Blocks chroma has no lexer for
// arrive unhighlighted and need their own pre/code pair.
func renderHighlightedCodeWrapper(w util.BufWriter, context highlighting.CodeBlockContext, entering bool) {
	line, annotated := highlightedCodeLine(context)
	plain := context == nil || !context.Highlighted()
	if entering {
		if annotated {
			_, _ = w.WriteString(`<div ` + mdLineAttribute + `="` + line + `">`)
		}
		if plain {
			_, _ = w.WriteString(codeOpenTag(context))
		}
		return
	}
	if plain {
		_, _ = w.WriteString("</code></pre>\n")
	}
	if annotated {
		_, _ = w.WriteString("</div>")
	}
}

func codeOpenTag(context highlighting.CodeBlockContext) string {
	if context != nil {
		if lang, ok := context.Language(); ok && len(lang) > 0 {
			return `<pre><code class="language-` + string(util.EscapeHTML(lang)) + `">`
		}
	}
	return "<pre><code>"
}

func highlightedCodeLine(context highlighting.CodeBlockContext) (string, bool) {
	if context == nil {
		return "", false
	}
	attrs := context.Attributes()
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.GetString(mdLineAttribute)
	if !ok {
		return "", false
	}
	switch typed := v.(type) {
	case string:
		return typed, typed != ""
	case []byte:
		return string(typed), len(typed) > 0
	default:
		return "", false
	}
}
