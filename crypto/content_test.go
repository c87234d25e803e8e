package crypto

import (
	"bytes"
	"crypto/aes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentRoundTrip(t *testing.T) {
	key, err := GenerateContentKey()
	require.NoError(t, err)

	cases := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello telegram")},
		{"utf8", []byte("héllo wörld 你好 🚀")},
		{"block aligned", bytes.Repeat([]byte("0123456789abcdef"), 4)},
		{"max content", []byte(strings.Repeat("m", 512000))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encrypted, err := EncryptContent(tc.plaintext, key)
			require.NoError(t, err)
			require.Greater(t, len(encrypted), aes.BlockSize)

			decrypted, err := DecryptContent(encrypted, key)
			require.NoError(t, err)
			require.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestContentRoundTripMultiChunk(t *testing.T) {
	key, err := GenerateContentKey()
	require.NoError(t, err)

	// Straddles the chunk boundary so decryption takes more than one
	// CryptBlocks pass.
	plaintext := bytes.Repeat([]byte{0xab}, ChunkSize+3*aes.BlockSize+5)

	encrypted, err := EncryptContent(plaintext, key)
	require.NoError(t, err)

	decrypted, err := DecryptContent(encrypted, key)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plaintext, decrypted))
}

func TestEncryptProducesFreshIV(t *testing.T) {
	key, err := GenerateContentKey()
	require.NoError(t, err)

	a, err := EncryptContent([]byte("same message"), key)
	require.NoError(t, err)
	b, err := EncryptContent([]byte("same message"), key)
	require.NoError(t, err)

	require.NotEqual(t, a[:aes.BlockSize], b[:aes.BlockSize])
	require.NotEqual(t, a, b)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	key, err := GenerateContentKey()
	require.NoError(t, err)

	_, err = DecryptContent([]byte("short"), key)
	require.Error(t, err)

	_, err = DecryptContent(make([]byte, aes.BlockSize+7), key)
	require.Error(t, err)

	_, err = DecryptContent(make([]byte, 2*aes.BlockSize), "not base64!")
	require.Error(t, err)

	encrypted, err := EncryptContent([]byte("payload"), key)
	require.NoError(t, err)

	// A wrong key either trips the padding check or yields garbage,
	// never the original plaintext.
	otherKey, err := GenerateContentKey()
	require.NoError(t, err)
	decrypted, err := DecryptContent(encrypted, otherKey)
	if err == nil {
		require.NotEqual(t, []byte("payload"), decrypted)
	}
}
