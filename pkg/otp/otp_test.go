package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q in %s", r, code)
		}
	}
}

func TestVerify(t *testing.T) {
	hash := Hash("123456")

	assert.NoError(t, Verify(hash, "123456"))
	assert.NoError(t, Verify(hash, " 123456 "))
	assert.ErrorIs(t, Verify(hash, "654321"), ErrMismatch)
	assert.ErrorIs(t, Verify("", "123456"), ErrMismatch)
}

func TestHashIsNotPlaintext(t *testing.T) {
	hash := Hash("000111")
	assert.NotContains(t, hash, "000111")
	assert.Len(t, hash, 64)
}
