package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "refund policy?", truncateTitle("refund policy?", 80))

	exact := strings.Repeat("a", 80)
	assert.Equal(t, exact, truncateTitle(exact, 80))

	long := strings.Repeat("a", 120)
	assert.Equal(t, strings.Repeat("a", 80), truncateTitle(long, 80))
}

func TestTruncateTitleKeepsRunesWhole(t *testing.T) {
	// A 2-byte rune straddles the 80-byte cap; the cut must back off to the
	// rune boundary instead of emitting invalid UTF-8.
	straddle := strings.Repeat("a", 79) + "é" + strings.Repeat("b", 20)

	got := truncateTitle(straddle, 80)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 79), got)
}
