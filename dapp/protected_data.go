package dapp

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// chatIDKey is the schema entry the dapp reads from a protected data.
const chatIDKey = "telegram_chatId"

var handlePattern = regexp.MustCompile(`^@\w{5,32}$`)

// ProtectedData is a deserialized protected-data archive: one file per
// schema entry.
type ProtectedData struct {
	entries map[string][]byte
}

// LoadProtectedData opens a protected-data zip archive from disk.
func LoadProtectedData(path string) (*ProtectedData, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening protected data %s: %w", path, err)
	}
	defer r.Close()

	entries := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("reading protected data entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading protected data entry %s: %w", f.Name, err)
		}
		entries[f.Name] = data
	}
	return &ProtectedData{entries: entries}, nil
}

// Value returns a schema entry as a string.
func (p *ProtectedData) Value(key string) (string, error) {
	data, ok := p.entries[key]
	if !ok {
		return "", fmt.Errorf("missing %q in protected data schema", key)
	}
	return string(data), nil
}

// ChatID extracts and validates the recipient chat id: a positive
// numeric id or an @handle of 5 to 32 word characters.
func (p *ProtectedData) ChatID() (string, error) {
	raw, err := p.Value(chatIDKey)
	if err != nil {
		return "", err
	}
	return NormalizeChatID(raw)
}

// NormalizeChatID validates a telegram chat id or @handle.
func NormalizeChatID(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("telegram chat id is empty")
	}
	if strings.HasPrefix(value, "@") {
		if !handlePattern.MatchString(value) {
			return "", fmt.Errorf("invalid telegram handle %q", value)
		}
		return value, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid telegram chat id %q", value)
	}
	return value, nil
}
