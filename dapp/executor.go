package dapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/crypto"
)

// Dispatcher delivers one message to one recipient. telegram.Dispatcher
// satisfies it.
type Dispatcher interface {
	SendMessage(ctx context.Context, chatID, senderName, content string) error
}

// ContentFetcher downloads a published blob by multiaddr. storage.Client
// satisfies it.
type ContentFetcher interface {
	Get(ctx context.Context, multiaddr string) ([]byte, error)
}

// Executor runs one confidential task end to end: parse secrets, fetch
// and decrypt the content, deliver to every recipient slot, write the
// result artifacts.
type Executor struct {
	env        Env
	fetcher    ContentFetcher
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewExecutor wires an executor for a parsed worker environment.
func NewExecutor(env Env, fetcher ContentFetcher, dispatcher Dispatcher, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{env: env, fetcher: fetcher, dispatcher: dispatcher, log: log}
}

// Run executes the task. The returned error covers infrastructure
// failures only (bad environment, undecryptable content, unwritable
// output); per-recipient delivery failures are recorded in result.json
// and do not fail the task.
func (e *Executor) Run(ctx context.Context) error {
	requesterSecret, err := ParseRequesterSecret(e.env.RequesterSecret)
	if err != nil {
		return e.failTask(err)
	}

	content, err := e.fetchContent(ctx, requesterSecret)
	if err != nil {
		return e.failTask(err)
	}

	if e.env.BulkSliceSize > 0 {
		return e.runBulk(ctx, requesterSecret.SenderName, content)
	}
	return e.runSingle(ctx, requesterSecret.SenderName, content)
}

func (e *Executor) fetchContent(ctx context.Context, secret RequesterSecret) (string, error) {
	blob, err := e.fetcher.Get(ctx, secret.TelegramContentMultiAddr)
	if err != nil {
		return "", fmt.Errorf("downloading telegram content: %w", err)
	}
	plaintext, err := crypto.DecryptContent(blob, secret.TelegramContentEncryptionKey)
	if err != nil {
		return "", fmt.Errorf("decrypting telegram content: %w", err)
	}
	return string(plaintext), nil
}

func (e *Executor) runSingle(ctx context.Context, senderName, content string) error {
	outcome := e.processSlot(ctx, 0, senderName, content)
	if outcome.Success {
		e.log.Info("telegram delivered")
		return writeResult(e.env.Out, SingleResult{Success: true})
	}
	e.log.Error("telegram delivery failed", "error", outcome.Error)
	return writeResult(e.env.Out, SingleResult{Success: false, Error: outcome.Error})
}

// runBulk fans the shared content out to every slot in parallel. Slots
// are independent: one failure never aborts the others.
func (e *Executor) runBulk(ctx context.Context, senderName, content string) error {
	n := e.env.SlotCount()
	results := make([]SlotResult, n)
	var (
		wg           sync.WaitGroup
		successCount atomic.Int64
		errorCount   atomic.Int64
	)

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(slot int) {
			defer wg.Done()
			outcome := e.processSlot(ctx, slot, senderName, content)
			if outcome.Success {
				successCount.Inc()
			} else {
				errorCount.Inc()
			}
			results[slot] = outcome
		}(i)
	}
	wg.Wait()

	result := BulkResult{
		Success:      errorCount.Load() == 0,
		TotalCount:   n,
		SuccessCount: int(successCount.Load()),
		ErrorCount:   int(errorCount.Load()),
		Results:      results,
	}
	if !result.Success {
		result.Error = "Partial failure"
	}
	e.log.Info("bulk delivery finished",
		"total", result.TotalCount,
		"success", result.SuccessCount,
		"errors", result.ErrorCount)
	return writeResult(e.env.Out, result)
}

// processSlot resolves one slot's protected data and delivers the
// message. All failures are captured in the outcome.
func (e *Executor) processSlot(ctx context.Context, slot int, senderName, content string) SlotResult {
	outcome := SlotResult{Index: slot}

	path, err := e.env.DatasetPath(slot)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ProtectedData = e.env.DatasetFilenames[slot]

	data, err := LoadProtectedData(path)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	chatID, err := data.ChatID()
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	if err := e.dispatcher.SendMessage(ctx, chatID, senderName, content); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	return outcome
}

// failTask records an unrecoverable failure in the result artifact before
// surfacing it; the artifact write is best effort at this point.
func (e *Executor) failTask(cause error) error {
	e.log.Error("task failed", "error", cause)
	if e.env.BulkSliceSize > 0 {
		_ = writeResult(e.env.Out, BulkResult{Error: cause.Error(), TotalCount: e.env.SlotCount()})
	} else {
		_ = writeResult(e.env.Out, SingleResult{Error: cause.Error()})
	}
	return cause
}
