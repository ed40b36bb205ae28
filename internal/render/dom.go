package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"go-admonitions/internal/admonition"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names of the admonition container and its parts.
const (
	ContainerClass = "docusaurus-admonition"
	TitleClass     = "docusaurus-admonition-title"
	ContentClass   = "docusaurus-admonition-content"
)

var paragraphs = cascadia.MustCompile("p")

// InlineFunc renders admonition content markup into nodes.
type InlineFunc func(markup string) ([]*html.Node, error)

// PostProcess runs the admonition matcher over a rendered HTML fragment and
// returns the fragment with every match replaced by a container.
func PostProcess(fragment string, enabled admonition.Settings, inline InlineFunc) (string, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}
	if err := Transform(root, enabled, inline); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render fragment: %w", err)
		}
	}
	return buf.String(), nil
}

func parseFragment(fragment string) (*html.Node, error) {
	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// Transform mutates the tree under root in place. The children of every
// element that holds paragraphs are scanned as one block sequence. Parents are
// visited deepest first so admonitions inside moved blocks are already
// converted when their ancestors are cloned.
func Transform(root *html.Node, enabled admonition.Settings, inline InlineFunc) error {
	var parents []*html.Node
	seen := make(map[*html.Node]bool)
	for _, p := range paragraphs.MatchAll(root) {
		if p.Parent != nil && !seen[p.Parent] {
			seen[p.Parent] = true
			parents = append(parents, p.Parent)
		}
	}

	sort.SliceStable(parents, func(i, j int) bool {
		return depth(parents[i]) > depth(parents[j])
	})
	for _, parent := range parents {
		if err := transformChildren(parent, enabled, inline); err != nil {
			return err
		}
	}
	return nil
}

func depth(n *html.Node) int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

type domBlock struct {
	node *html.Node
}

// Text exposes paragraph text only; other elements never act as markers.
func (b domBlock) Text() string {
	if b.node.DataAtom != atom.P {
		return ""
	}
	return textContent(b.node)
}

func transformChildren(parent *html.Node, enabled admonition.Settings, inline InlineFunc) error {
	var elems []*html.Node
	var blocks []admonition.Block
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			elems = append(elems, c)
			blocks = append(blocks, domBlock{node: c})
		}
	}

	for _, m := range admonition.MatchBlocks(blocks, enabled) {
		container, content := newContainer(m.Type, m.DisplayTitle())
		if line, ok := attr(elems[m.Start], mdLineAttribute); ok {
			container.Attr = append(container.Attr, html.Attribute{Key: mdLineAttribute, Val: line})
		}

		if m.SingleLine {
			if inline == nil {
				content.AppendChild(&html.Node{Type: html.TextNode, Data: m.Inline})
			} else {
				nodes, err := inline(m.Inline)
				if err != nil {
					return fmt.Errorf("render %s content: %w", m.Type, err)
				}
				for _, n := range nodes {
					content.AppendChild(n)
				}
			}
		}

		if m.Lead != "" {
			if lead := leadParagraph(elems[m.Start]); lead != nil {
				content.AppendChild(lead)
			}
		}

		from, to := m.Content()
		for _, n := range elems[from:to] {
			content.AppendChild(cloneNode(n))
		}

		parent.InsertBefore(container, elems[m.Start])
		for _, n := range elems[m.Start : m.End+1] {
			parent.RemoveChild(n)
		}
	}
	return nil
}

// leadParagraph copies the opening paragraph without its first line, keeping
// inline markup. It returns nil when nothing follows the opener line.
func leadParagraph(p *html.Node) *html.Node {
	lead := cloneNode(p)
	lead.Attr = nil
	for c := lead.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			if i := strings.IndexByte(c.Data, '\n'); i >= 0 {
				c.Data = strings.TrimLeft(c.Data[i+1:], " \t")
				if strings.TrimSpace(textContent(lead)) == "" {
					return nil
				}
				return lead
			}
		}
		lead.RemoveChild(c)
		c = next
	}
	return nil
}

func newContainer(t admonition.Type, title string) (container, content *html.Node) {
	container = element(atom.Div, ContainerClass+" "+ContainerClass+"-"+t.String())
	heading := element(atom.Div, TitleClass)
	heading.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	content = element(atom.Div, ContentClass)
	container.AppendChild(heading)
	container.AppendChild(content)
	return container, content
}

func element(a atom.Atom, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// cloneNode deep-copies n into a detached node.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if n.Attr != nil {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
