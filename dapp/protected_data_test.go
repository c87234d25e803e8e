package dapp

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProtectedData creates a protected-data zip with one file per
// schema entry.
func writeProtectedData(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for key, value := range entries {
		entry, err := w.Create(key)
		require.NoError(t, err)
		_, err = entry.Write([]byte(value))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestLoadProtectedData(t *testing.T) {
	dir := t.TempDir()
	path := writeProtectedData(t, dir, "data.zip", map[string]string{
		"telegram_chatId": "123456789",
		"email":           "someone@example.com",
	})

	data, err := LoadProtectedData(path)
	require.NoError(t, err)

	chatID, err := data.ChatID()
	require.NoError(t, err)
	assert.Equal(t, "123456789", chatID)
}

func TestLoadProtectedDataMissingFile(t *testing.T) {
	_, err := LoadProtectedData(filepath.Join(t.TempDir(), "absent.zip"))
	require.Error(t, err)
}

func TestChatIDMissingSchemaEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeProtectedData(t, dir, "data.zip", map[string]string{
		"email": "someone@example.com",
	})

	data, err := LoadProtectedData(path)
	require.NoError(t, err)
	_, err = data.ChatID()
	require.EqualError(t, err, `missing "telegram_chatId" in protected data schema`)
}

func TestNormalizeChatID(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "123456789", want: "123456789"},
		{in: " 42 ", want: "42"},
		{in: "@username", want: "@username"},
		{in: "@user_name_42", want: "@user_name_42"},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "@abc", wantErr: true},
		{in: "@", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeChatID(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}
