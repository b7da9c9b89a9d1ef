package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResult(t *testing.T) {
	r, ok := ParseResult("sale_closed")
	assert.True(t, ok)
	assert.Equal(t, ResultSaleClosed, r)

	_, ok = ParseResult("")
	assert.False(t, ok)
	_, ok = ParseResult("MAYBE")
	assert.False(t, ok)
}
