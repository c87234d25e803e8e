package web3telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/crypto"
	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

func TestSendTelegram(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()

	resp, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "hello from the tests",
		SenderName:      "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, strings.HasPrefix(string(resp.TaskID), "0x"))
	assert.Len(t, string(resp.TaskID), 66)

	// One deal settled, one secret pushed, one blob uploaded.
	require.Len(t, env.mock.Matched, 1)
	require.Len(t, env.mock.Secrets, 1)
	require.Len(t, env.storage.blobs, 1)

	// The request order echoes the resolved prices and references the
	// secret at index 1.
	matched := env.mock.Matched[0]
	assert.Equal(t, marketplace.TeeScone, matched.RequestOrder.Tag)
	assert.Equal(t, uint(1), matched.RequestOrder.Volume)
	secretID, ok := matched.RequestOrder.Params.Secrets[1]
	require.True(t, ok)

	// The pushed secret decrypts back to the original content.
	var secret struct {
		SenderName                   string `json:"senderName"`
		TelegramContentMultiAddr     string `json:"telegramContentMultiAddr"`
		TelegramContentEncryptionKey string `json:"telegramContentEncryptionKey"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mock.Secrets[secretID]), &secret))
	assert.Equal(t, "Alice", secret.SenderName)
	require.True(t, strings.HasPrefix(secret.TelegramContentMultiAddr, "/ipfs/"))

	cid := strings.TrimPrefix(secret.TelegramContentMultiAddr, "/ipfs/")
	blob, ok := env.storage.blobs[cid]
	require.True(t, ok)
	plaintext, err := crypto.DecryptContent(blob, secret.TelegramContentEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "hello from the tests", string(plaintext))

	// The dataset grant was consumed.
	assert.Equal(t, uint(9), env.mock.DatasetOrders[0].Remaining)
}

func TestSendTelegramTaskIDMatchesDeal(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()

	resp, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "content",
	})
	require.NoError(t, err)

	require.Len(t, env.mock.Matched, 1)

	// An identical environment settles the same deal and therefore
	// yields the same slot-0 task id.
	env2 := newTestEnv(t)
	env2.publishDefaultOrders()
	resp2, err := env2.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "content",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.TaskID, resp2.TaskID)
}

func TestSendTelegramValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		params  SendTelegramParams
		message string
	}{
		{
			name:    "missing protected data",
			params:  SendTelegramParams{TelegramContent: "hi"},
			message: "protectedData is a required field",
		},
		{
			name:    "malformed protected data",
			params:  SendTelegramParams{ProtectedData: "not-an-address", TelegramContent: "hi"},
			message: "protectedData should be an ethereum address",
		},
		{
			name:    "missing content",
			params:  SendTelegramParams{ProtectedData: testDataset},
			message: "telegramContent is a required field",
		},
		{
			name: "sender name too short",
			params: SendTelegramParams{
				ProtectedData: testDataset, TelegramContent: "hi", SenderName: "ab",
			},
			message: "senderName must be between 3 and 20 characters",
		},
		{
			name: "label too long",
			params: SendTelegramParams{
				ProtectedData: testDataset, TelegramContent: "hi", Label: "way-too-long-label",
			},
			message: "label must be between 3 and 10 characters",
		},
		{
			name: "bad workerpool",
			params: SendTelegramParams{
				ProtectedData: testDataset, TelegramContent: "hi",
				WorkerpoolAddressOrEns: "bogus",
			},
			message: "workerpoolAddressOrEns should be an ethereum address or a ENS name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.client.SendTelegram(context.Background(), tc.params)
			require.Error(t, err)

			var wfErr *WorkflowError
			require.ErrorAs(t, err, &wfErr)
			assert.Equal(t, "Failed to sendTelegram", wfErr.Message)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.message, vErr.Message)
		})
	}
}

func TestSendTelegramContentTooLong(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: strings.Repeat("a", MaxContentLength+1),
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "telegramContent must be at most 512000 characters", vErr.Message)
}

func TestSendTelegramRejectsBadSchema(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()
	env.index.valid[testDataset] = false

	_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `This protected data does not contain "telegram_chatId:string" in its schema.`)
	assert.Empty(t, env.mock.Matched)
}

func TestSendTelegramVoucherChecks(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()

	t.Run("no voucher", func(t *testing.T) {
		_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
			ProtectedData:   testDataset,
			TelegramContent: "hi",
			UseVoucher:      true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Oops, it seems your wallet is not associated with any voucher. Check on https://builder.iex.ec/")
	})

	t.Run("expired voucher", func(t *testing.T) {
		env.mock.Vouchers[testRequester] = &marketplace.UserVoucher{
			Owner:               testRequester,
			Balance:             10,
			ExpirationTimestamp: 1,
		}
		_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
			ProtectedData:   testDataset,
			TelegramContent: "hi",
			UseVoucher:      true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Oops, it seems your voucher has expired. You might want to ask for a top up. Check on https://builder.iex.ec/")
	})

	t.Run("empty voucher", func(t *testing.T) {
		env.mock.Vouchers[testRequester] = &marketplace.UserVoucher{
			Owner:               testRequester,
			Balance:             0,
			ExpirationTimestamp: 4102444800,
		}
		_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
			ProtectedData:   testDataset,
			TelegramContent: "hi",
			UseVoucher:      true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Oops, it seems your voucher is empty. You might want to ask for a top up. Check on https://builder.iex.ec/")
	})
}

func TestSendTelegramProtocolErrorPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()
	env.mock.MatchErr = &marketplace.ProtocolError{Op: "match orders", Err: errors.New("chain unreachable")}

	_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "hi",
	})
	require.Error(t, err)
	assert.True(t, marketplace.IsProtocolError(err))

	var wfErr *WorkflowError
	assert.False(t, errors.As(err, &wfErr))
}

func TestSendTelegramUploadFailureIsWorkflowError(t *testing.T) {
	env := newTestEnv(t)
	env.publishDefaultOrders()
	env.storage.err = errors.New("gateway down")

	_, err := env.client.SendTelegram(context.Background(), SendTelegramParams{
		ProtectedData:   testDataset,
		TelegramContent: "hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to upload encrypted telegram content")
	assert.Empty(t, env.mock.Matched)
}
