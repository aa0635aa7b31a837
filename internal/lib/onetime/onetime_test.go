package onetime

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hex40 = regexp.MustCompile(`^[0-9a-f]{40}$`)

func TestGenerate_Format(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, hex40, tok)
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	tok, err := generate(bytes.NewReader(bytes.Repeat([]byte{0xab}, Size)))
	require.NoError(t, err)
	assert.Equal(t, "abababababababababababababababababababab", tok)
}

func TestGenerate_ReaderError(t *testing.T) {
	_, err := generate(iotest.ErrReader(errors.New("entropy exhausted")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}
