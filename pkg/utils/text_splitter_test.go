package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitText_ShortInputSingleChunk(t *testing.T) {
	chunks := SplitText("hello world", 100, 20)

	assert.Equal(t, []string{"hello world"}, chunks)
}

func TestSplitText_NeighboursShareOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 chars

	chunks := SplitText(text, 40, 10)

	assert.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-10:]
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d should start with the last 10 chars of chunk %d", i, i-1)
	}
}

func TestSplitText_CoversWholeInput(t *testing.T) {
	text := strings.Repeat("x", 95)

	chunks := SplitText(text, 30, 5)

	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))

	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 30)
		total += len(c)
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestSplitText_OverlapLargerThanChunkDoesNotLoop(t *testing.T) {
	text := strings.Repeat("y", 50)

	chunks := SplitText(text, 10, 15)

	assert.Equal(t, 5, len(chunks))
}
