package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil), "")

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SetToken("abc"))
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.DeleteToken())
	require.NoError(t, s.DeleteToken())
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}
