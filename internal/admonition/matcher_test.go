package admonition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlocks(texts ...string) []Block {
	blocks := make([]Block, len(texts))
	for i, text := range texts {
		blocks[i] = TextBlock(text)
	}
	return blocks
}

func TestMatchBlocksMultiLineEveryType(t *testing.T) {
	for _, typ := range Types() {
		t.Run(typ.String(), func(t *testing.T) {
			blocks := textBlocks(":::"+typ.String(), "first", "second", ":::")

			matches := MatchBlocks(blocks, DefaultSettings())
			require.Len(t, matches, 1)

			m := matches[0]
			assert.Equal(t, typ, m.Type)
			assert.Equal(t, typ.Title(), m.DisplayTitle())
			assert.False(t, m.SingleLine)
			assert.Equal(t, 0, m.Start)
			assert.Equal(t, 3, m.End)

			from, to := m.Content()
			assert.Equal(t, []Block{TextBlock("first"), TextBlock("second")}, blocks[from:to])
		})
	}
}

func TestMatchBlocksSingleLineWithTitle(t *testing.T) {
	matches := MatchBlocks(textBlocks(":::tip [My Title] hello :::"), DefaultSettings())
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, Tip, m.Type)
	assert.True(t, m.SingleLine)
	assert.Equal(t, "My Title", m.DisplayTitle())
	assert.Equal(t, "hello", m.Inline)
	assert.Equal(t, 0, m.End)

	from, to := m.Content()
	assert.Equal(t, from, to)
}

func TestMatchBlocksSingleLineDefaultTitle(t *testing.T) {
	matches := MatchBlocks(textBlocks(":::info some *inline* text :::"), DefaultSettings())
	require.Len(t, matches, 1)
	assert.Equal(t, "INFO", matches[0].DisplayTitle())
	assert.Equal(t, "some *inline* text", matches[0].Inline)
}

func TestMatchBlocksSingleBlockSpanningLines(t *testing.T) {
	matches := MatchBlocks(textBlocks(":::note\nline one\nline two\n:::"), DefaultSettings())
	require.Len(t, matches, 1)
	assert.True(t, matches[0].SingleLine)
	assert.Equal(t, "line one\nline two", matches[0].Inline)
}

func TestMatchBlocksMultiLineTitle(t *testing.T) {
	matches := MatchBlocks(textBlocks(":::warning [Careful now]", "body", ":::"), DefaultSettings())
	require.Len(t, matches, 1)
	assert.Equal(t, "Careful now", matches[0].Title)
	assert.Equal(t, Warning, matches[0].Type)
}

func TestMatchBlocksKeepsTextAfterOpener(t *testing.T) {
	matches := MatchBlocks(textBlocks(":::note [Title]\nbody line\nsecond", "more", ":::"), DefaultSettings())
	require.Len(t, matches, 1)
	assert.False(t, matches[0].SingleLine)
	assert.Equal(t, "Title", matches[0].Title)
	assert.Equal(t, "body line\nsecond", matches[0].Lead)

	plain := MatchBlocks(textBlocks(":::note", "body", ":::"), DefaultSettings())
	require.Len(t, plain, 1)
	assert.Empty(t, plain[0].Lead)
}

func TestMatchBlocksDisabledType(t *testing.T) {
	enabled := DefaultSettings()
	enabled.Set(Danger, false)

	assert.Empty(t, MatchBlocks(textBlocks(":::danger", "body", ":::"), enabled))
	assert.Empty(t, MatchBlocks(textBlocks(":::danger inline :::"), enabled))
}

func TestMatchBlocksUnterminated(t *testing.T) {
	assert.Empty(t, MatchBlocks(textBlocks(":::warning", "body", "more"), DefaultSettings()))
}

func TestMatchBlocksRejectsNearMisses(t *testing.T) {
	blocks := textBlocks(
		":::notes",
		":::NOTE",
		"::: note",
		"text :::note",
		":::",
	)
	assert.Empty(t, MatchBlocks(blocks, DefaultSettings()))
}

func TestMatchBlocksTrimsBlockText(t *testing.T) {
	matches := MatchBlocks(textBlocks("  :::note  ", "body", "  :::  "), DefaultSettings())
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].End)
}

func TestMatchBlocksResumesAfterEnd(t *testing.T) {
	blocks := textBlocks(
		":::note", "a", ":::",
		"between",
		":::tip", "b", ":::",
	)
	matches := MatchBlocks(blocks, DefaultSettings())
	require.Len(t, matches, 2)
	assert.Equal(t, Note, matches[0].Type)
	assert.Equal(t, 4, matches[1].Start)
	assert.Equal(t, 6, matches[1].End)
}

func TestMatchBlocksUnterminatedDoesNotHideLaterBlocks(t *testing.T) {
	blocks := textBlocks(":::danger", "x", ":::note inline :::")
	matches := MatchBlocks(blocks, DefaultSettings())
	require.Len(t, matches, 1)
	assert.Equal(t, Note, matches[0].Type)
	assert.Equal(t, 2, matches[0].Start)
}

// Nested blocks are not supported: the inner terminator closes the outer block.
func TestMatchBlocksFirstTerminatorWins(t *testing.T) {
	blocks := textBlocks(":::note", ":::tip", "inner", ":::", "outer tail", ":::")
	matches := MatchBlocks(blocks, DefaultSettings())
	require.Len(t, matches, 1)
	assert.Equal(t, Note, matches[0].Type)
	assert.Equal(t, 3, matches[0].End)
}

func TestMatchBlocksEmptyBlocksNeverTerminate(t *testing.T) {
	blocks := textBlocks(":::info", "", "body")
	assert.Empty(t, MatchBlocks(blocks, DefaultSettings()))
}
