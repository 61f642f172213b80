package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	sealed, err := Seal("123456:ABC-token", "correct horse")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "ABC-token")

	plain, err := Open(sealed, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "123456:ABC-token", plain)

	again, err := Seal("123456:ABC-token", "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "salt and nonce are random")
}

func TestOpenFailures(t *testing.T) {
	sealed, err := Seal("key", "correct horse")
	require.NoError(t, err)

	_, err = Open(sealed, "wrong horse!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Open(sealed, "")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Open(Prefix+"not base64 ~~", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = Open(Prefix+"YWJj", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidData)

	tampered := sealed[:len(sealed)-4] + strings.Repeat("A", 4)
	_, err = Open(tampered, "correct horse")
	assert.Error(t, err)
}

func TestOpenPassesPlainValues(t *testing.T) {
	plain, err := Open("plain-key", "")
	require.NoError(t, err)
	assert.Equal(t, "plain-key", plain)
}

func TestSealRejectsShortPassphrase(t *testing.T) {
	_, err := Seal("key", "1234")
	assert.ErrorIs(t, err, ErrShortPassphrase)
}
