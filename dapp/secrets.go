package dapp

import (
	"encoding/json"
	"fmt"
)

// AppSecret is the app developer secret provisioned to the dapp: the bot
// identity used for every send.
type AppSecret struct {
	TelegramBotToken string `json:"TELEGRAM_BOT_TOKEN"`
}

// ParseAppSecret decodes and checks the app developer secret.
func ParseAppSecret(raw string) (AppSecret, error) {
	if raw == "" {
		return AppSecret{}, fmt.Errorf("app developer secret is missing")
	}
	var secret AppSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return AppSecret{}, fmt.Errorf("app developer secret is not valid JSON: %w", err)
	}
	if secret.TelegramBotToken == "" {
		return AppSecret{}, fmt.Errorf("app developer secret is missing TELEGRAM_BOT_TOKEN")
	}
	return secret, nil
}

// RequesterSecret is the per-send secret pushed by the SDK: where the
// encrypted content lives and how to open it.
type RequesterSecret struct {
	SenderName                   string `json:"senderName"`
	TelegramContentMultiAddr     string `json:"telegramContentMultiAddr"`
	TelegramContentEncryptionKey string `json:"telegramContentEncryptionKey"`
}

// ParseRequesterSecret decodes and checks the requester secret.
func ParseRequesterSecret(raw string) (RequesterSecret, error) {
	if raw == "" {
		return RequesterSecret{}, fmt.Errorf("requester secret is missing")
	}
	var secret RequesterSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return RequesterSecret{}, fmt.Errorf("requester secret is not valid JSON: %w", err)
	}
	if secret.TelegramContentMultiAddr == "" {
		return RequesterSecret{}, fmt.Errorf("requester secret is missing telegramContentMultiAddr")
	}
	if secret.TelegramContentEncryptionKey == "" {
		return RequesterSecret{}, fmt.Errorf("requester secret is missing telegramContentEncryptionKey")
	}
	return secret, nil
}
