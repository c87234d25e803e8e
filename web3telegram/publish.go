package web3telegram

import (
	"context"
	"encoding/json"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/crypto"
	"github.com/iExecBlockchainComputing/web3telegram-sdk/storage"
)

// publishedContent is an encrypted message blob uploaded to
// content-addressed storage plus the key needed to open it.
type publishedContent struct {
	Multiaddr string
	Key       string
}

// publishContent encrypts the telegram content under a fresh key and
// uploads the blob, returning the /ipfs multiaddr and the base64 key.
func (c *Client) publishContent(ctx context.Context, content string) (*publishedContent, error) {
	key, err := crypto.GenerateContentKey()
	if err != nil {
		return nil, &WorkflowError{Message: "Failed to encrypt message content", Cause: err}
	}
	encrypted, err := crypto.EncryptContent([]byte(content), key)
	if err != nil {
		return nil, &WorkflowError{Message: "Failed to encrypt message content", Cause: err}
	}

	cid, err := c.storage.Add(ctx, encrypted)
	if err != nil {
		return nil, &WorkflowError{Message: "Failed to upload encrypted telegram content", Cause: err}
	}

	return &publishedContent{
		Multiaddr: storage.ContentMultiaddr(cid),
		Key:       key,
	}, nil
}

// requesterSecret is the JSON payload pushed to the secret management
// service; the dapp reads it back as its requester secret.
type requesterSecret struct {
	SenderName                   string `json:"senderName,omitempty"`
	TelegramContentMultiAddr     string `json:"telegramContentMultiAddr"`
	TelegramContentEncryptionKey string `json:"telegramContentEncryptionKey"`
}

func encodeRequesterSecret(senderName string, content *publishedContent) (string, error) {
	payload, err := json.Marshal(requesterSecret{
		SenderName:                   senderName,
		TelegramContentMultiAddr:     content.Multiaddr,
		TelegramContentEncryptionKey: content.Key,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
