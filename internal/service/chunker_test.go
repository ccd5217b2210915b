package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_SmallInputSingleChunk(t *testing.T) {
	input := "Para A.\n\nPara B."
	chunks := chunkText(input, DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "Para A.\n\nPara B.", chunks[0])
}

func TestChunkText_EmptyInput(t *testing.T) {
	assert.Nil(t, chunkText("", DefaultChunkConfig()))
	assert.Nil(t, chunkText("   \n\n\t  ", DefaultChunkConfig()))
}

func TestChunkText_NormalizesLineEndings(t *testing.T) {
	input := "Para A.\r\n\r\nPara B.\n\n\n\n\nPara C."
	chunks := chunkText(input, DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "Para A.\n\nPara B.\n\nPara C.", chunks[0])
}

func makeParagraph(start, count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "Sentence number %d explains a distinct detail of the support policy. ", start+i)
	}
	return strings.TrimSpace(sb.String())
}

func TestChunkText_LongInputProducesOverlappingChunks(t *testing.T) {
	// Roughly 2000 estimated tokens across several paragraphs.
	var paragraphs []string
	for p := 0; p < 8; p++ {
		paragraphs = append(paragraphs, makeParagraph(p*16, 16))
	}
	input := strings.Join(paragraphs, "\n\n")
	require.Greater(t, estimateTokens(input), 1500)

	chunks := chunkText(input, DefaultChunkConfig())
	require.GreaterOrEqual(t, len(chunks), 2)

	// The second chunk must begin with sentence text present at the tail of the first.
	firstSentence := sentenceRe.FindString(chunks[1])
	require.NotEmpty(t, firstSentence)
	assert.True(t, strings.HasSuffix(chunks[0], strings.TrimSpace(overlapTail(chunks[0], 150))))
	assert.Contains(t, chunks[0], strings.TrimSpace(firstSentence))
}

func TestChunkText_OversizedParagraphSplitsOnSentences(t *testing.T) {
	// A single paragraph well past 1.2x the target has to fall back to
	// sentence granularity rather than being emitted whole.
	input := makeParagraph(0, 80)
	require.Greater(t, estimateTokens(input), 960)

	chunks := chunkText(input, DefaultChunkConfig())
	require.GreaterOrEqual(t, len(chunks), 2)

	for _, c := range chunks {
		assert.LessOrEqual(t, estimateTokens(c), 1000)
	}

	firstSentence := sentenceRe.FindString(chunks[1])
	require.NotEmpty(t, firstSentence)
	assert.Contains(t, chunks[0], strings.TrimSpace(firstSentence))
}

func TestChunkText_DropsShortTrailingChunks(t *testing.T) {
	big := makeParagraph(0, 60)
	input := big + "\n\nTiny end."
	chunks := chunkText(input, ChunkConfig{TargetTokens: 200, OverlapTokens: 0, MinChunkChars: 100})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c), 100)
	}
}

func TestChunkText_SoleShortChunkSurvives(t *testing.T) {
	chunks := chunkText("Short note.", DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short note.", chunks[0])
}

func TestOverlapTail(t *testing.T) {
	chunk := "First sentence here. Second sentence follows. Third one closes."

	t.Run("within budget keeps suffix sentences", func(t *testing.T) {
		tail := overlapTail(chunk, 10)
		assert.Equal(t, "Third one closes.", tail)
	})

	t.Run("larger budget keeps more sentences", func(t *testing.T) {
		tail := overlapTail(chunk, 100)
		assert.Equal(t, "First sentence here. Second sentence follows. Third one closes.", tail)
	})

	t.Run("zero budget yields empty tail", func(t *testing.T) {
		assert.Empty(t, overlapTail(chunk, 0))
	})

	t.Run("no sentence boundary yields empty tail", func(t *testing.T) {
		assert.Empty(t, overlapTail("no terminal punctuation at all", 50))
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 25, estimateTokens(strings.Repeat("a", 100)))
}
