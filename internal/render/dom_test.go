package render

import (
	"testing"

	"go-admonitions/internal/admonition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestPostProcessClonesContent(t *testing.T) {
	fragment := `<p>:::note [Read me]</p><ul><li>one</li></ul><p>two</p><p>:::</p><p>tail</p>`

	out, err := PostProcess(fragment, admonition.DefaultSettings(), nil)
	require.NoError(t, err)
	assert.Equal(t,
		`<div class="docusaurus-admonition docusaurus-admonition-note">`+
			`<div class="docusaurus-admonition-title">Read me</div>`+
			`<div class="docusaurus-admonition-content"><ul><li>one</li></ul><p>two</p></div>`+
			`</div><p>tail</p>`,
		out)
}

func TestPostProcessKeepsTextAfterOpener(t *testing.T) {
	fragment := "<p>:::note\nbody <em>line</em></p><p>more</p><p>:::</p>"

	out, err := PostProcess(fragment, admonition.DefaultSettings(), nil)
	require.NoError(t, err)
	assert.Equal(t,
		`<div class="docusaurus-admonition docusaurus-admonition-note">`+
			`<div class="docusaurus-admonition-title">NOTE</div>`+
			`<div class="docusaurus-admonition-content"><p>body <em>line</em></p><p>more</p></div>`+
			`</div>`,
		out)
}

func TestLeadParagraphEmptyAfterOpener(t *testing.T) {
	root, err := parseFragment("<p>:::note <br>\n  </p>")
	require.NoError(t, err)
	assert.Nil(t, leadParagraph(root.FirstChild))
}

func TestPostProcessInlineFallsBackToText(t *testing.T) {
	out, err := PostProcess(`<p>:::danger a &lt;b&gt; :::</p>`, admonition.DefaultSettings(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="docusaurus-admonition-content">a &lt;b&gt;</div>`)
}

func TestPostProcessInlineError(t *testing.T) {
	failing := func(string) ([]*html.Node, error) { return nil, assert.AnError }
	_, err := PostProcess(`<p>:::tip x :::</p>`, admonition.DefaultSettings(), failing)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPostProcessListsNeverMark(t *testing.T) {
	fragment := `<p>:::info</p><ul><li>:::</li></ul><p>body</p>`
	out, err := PostProcess(fragment, admonition.DefaultSettings(), nil)
	require.NoError(t, err)
	assert.Equal(t, fragment, out)
}

func TestCloneNodeIsDetachedDeepCopy(t *testing.T) {
	root, err := parseFragment(`<p class="x">a <b>b</b></p>`)
	require.NoError(t, err)

	orig := root.FirstChild
	clone := cloneNode(orig)
	assert.Nil(t, clone.Parent)
	assert.Equal(t, textContent(orig), textContent(clone))

	clone.Attr[0].Val = "y"
	assert.Equal(t, "x", orig.Attr[0].Val)
}
