package web3telegram

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// MaxContentLength bounds the telegram content size (schema-enforced).
const MaxContentLength = 512000

const (
	minSenderNameLength = 3
	maxSenderNameLength = 20
	minLabelLength      = 3
	maxLabelLength      = 10
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func isAddress(value string) bool {
	return addressPattern.MatchString(value)
}

func isENS(value string) bool {
	return strings.HasSuffix(value, ".eth") && len(value) > 6
}

// validateAddress accepts a plain Ethereum address, lowercased.
func validateAddress(label string, value marketplace.Address) (marketplace.Address, error) {
	v := strings.ToLower(string(value))
	if v == "" {
		return "", validationErrorf("%s is a required field", label)
	}
	if !isAddress(v) {
		return "", validationErrorf("%s should be an ethereum address", label)
	}
	return marketplace.Address(v), nil
}

// validateAddressOrENS accepts an Ethereum address or an ENS name,
// lowercased.
func validateAddressOrENS(label string, value marketplace.Address) (marketplace.Address, error) {
	v := strings.ToLower(string(value))
	if v == "" {
		return "", validationErrorf("%s is a required field", label)
	}
	if !isAddress(v) && !isENS(v) {
		return "", validationErrorf("%s should be an ethereum address or a ENS name", label)
	}
	return marketplace.Address(v), nil
}

func validateTelegramContent(content string) (string, error) {
	if content == "" {
		return "", validationErrorf("telegramContent is a required field")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", validationErrorf("telegramContent must be at most %d characters", MaxContentLength)
	}
	return content, nil
}

// validateSenderName trims and bounds the optional sender display name;
// the bounds keep senders from being flagged as spam.
func validateSenderName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", nil
	}
	if n := utf8.RuneCountInString(trimmed); n < minSenderNameLength || n > maxSenderNameLength {
		return "", validationErrorf("senderName must be between %d and %d characters", minSenderNameLength, maxSenderNameLength)
	}
	return trimmed, nil
}

// validateLabel trims and bounds the optional campaign label.
func validateLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", nil
	}
	if n := utf8.RuneCountInString(trimmed); n < minLabelLength || n > maxLabelLength {
		return "", validationErrorf("label must be between %d and %d characters", minLabelLength, maxLabelLength)
	}
	return trimmed, nil
}
