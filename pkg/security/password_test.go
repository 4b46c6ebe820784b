package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.True(t, IsMismatch(h.Compare(hash, "wrong horse")))
	assert.True(t, IsMismatch(h.Compare("", "correct horse")))
	assert.False(t, IsMismatch(h.Compare("not-a-bcrypt-hash", "correct horse")))
}

func TestHashRejectsLength(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNeedsRehash(t *testing.T) {
	low := NewBcryptHasher(bcrypt.MinCost)
	hash, err := low.Hash("correct horse")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, NewBcryptHasher(bcrypt.MinCost+1).NeedsRehash(hash))
	assert.True(t, low.NeedsRehash("garbage"))
}
