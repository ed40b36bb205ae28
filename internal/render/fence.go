package render

import (
	"bytes"
	"fmt"
	"regexp"

	"go-admonitions/internal/admonition"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	settingsKey   = parser.NewContextKey()
	sourcePathKey = parser.NewContextKey()

	fenceInfo = regexp.MustCompile(`^\s*([a-z]+)(?:\s+\[([^\]]*)\])?`)
)

// KindAdmonitionFence is the node kind of a fenced code block written as an
// admonition, e.g. ```tip [Title].
var KindAdmonitionFence = ast.NewNodeKind("AdmonitionFence")

// fenceBlock wraps the fenced code block so it gets its own renderer instead
// of the highlighter's.
type fenceBlock struct {
	ast.FencedCodeBlock

	AdmonitionType admonition.Type
	Title          string
	SourcePath     string
	Enabled        admonition.Settings
}

func (b *fenceBlock) Kind() ast.NodeKind { return KindAdmonitionFence }

func (b *fenceBlock) Dump(source []byte, level int) {
	ast.DumpHelper(b, source, level, map[string]string{
		"Type":  b.AdmonitionType.String(),
		"Title": b.Title,
	}, nil)
}

// RawContent returns the fence body.
func (b *fenceBlock) RawContent(source []byte) []byte {
	var buf bytes.Buffer
	lines := b.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.Bytes()
}

func (b *fenceBlock) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	return b.AdmonitionType.Title()
}

// fenceExtension turns fences whose info string names an enabled admonition
// type into admonition containers. The body is rendered as markdown by convert.
type fenceExtension struct {
	convert func(source []byte, sourcePath string, enabled admonition.Settings) (string, error)
}

func (e *fenceExtension) Extend(md goldmark.Markdown) {
	md.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&fenceTransformer{}, 100),
		),
	)
	md.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&fenceRenderer{convert: e.convert}, 100),
		),
	)
}

type fenceTransformer struct{}

func (t *fenceTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	enabled := admonition.DefaultSettings()
	if s, ok := pc.Get(settingsKey).(admonition.Settings); ok {
		enabled = s
	}
	sourcePath, _ := pc.Get(sourcePathKey).(string)

	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fb, ok := n.(*ast.FencedCodeBlock); ok && entering {
			fences = append(fences, fb)
		}
		return ast.WalkContinue, nil
	})

	source := reader.Source()
	for _, fb := range fences {
		if fb.Info == nil {
			continue
		}
		m := fenceInfo.FindSubmatch(fb.Info.Segment.Value(source))
		if m == nil {
			continue
		}
		typ, err := admonition.ParseType(string(m[1]))
		if err != nil || !enabled.Enabled(typ) {
			continue
		}

		block := &fenceBlock{
			FencedCodeBlock: *fb,
			AdmonitionType:  typ,
			Title:           string(m[2]),
			SourcePath:      sourcePath,
			Enabled:         enabled,
		}
		// The copy still carries fb's links; detach it before insertion.
		block.SetParent(nil)
		block.SetPreviousSibling(nil)
		block.SetNextSibling(nil)

		parent := fb.Parent()
		parent.ReplaceChild(parent, fb, block)
	}
}

type fenceRenderer struct {
	convert func(source []byte, sourcePath string, enabled admonition.Settings) (string, error)
}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonitionFence, r.render)
}

func (r *fenceRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*fenceBlock)

	body, err := r.convert(n.RawContent(source), n.SourcePath, n.Enabled)
	if err != nil {
		return ast.WalkStop, fmt.Errorf("render %s fence: %w", n.AdmonitionType, err)
	}

	_, _ = fmt.Fprintf(w, `<div class="%s %s%s"`, ContainerClass, ContainerClass+"-", n.AdmonitionType)
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, nil)
	}
	_, _ = w.WriteString(`><div class="` + TitleClass + `">`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.DisplayTitle())))
	_, _ = w.WriteString(`</div><div class="` + ContentClass + `">`)
	_, _ = w.WriteString(body)
	_, _ = w.WriteString("</div></div>\n")
	return ast.WalkSkipChildren, nil
}
