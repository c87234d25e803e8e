package dapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SlotResult is the outcome of a single recipient slot.
type SlotResult struct {
	Index         int    `json:"index"`
	ProtectedData string `json:"protectedData"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// SingleResult is the result.json payload in single-recipient mode.
type SingleResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkResult is the result.json payload in bulk mode. Success is false as
// soon as one slot failed, but every slot's detail is preserved.
type BulkResult struct {
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	TotalCount   int          `json:"totalCount"`
	SuccessCount int          `json:"successCount"`
	ErrorCount   int          `json:"errorCount"`
	Results      []SlotResult `json:"results"`
}

// writeResult persists result.json plus the computed.json pointer the
// platform reads the deterministic output path from. A failure here is an
// infrastructure failure and must fail the whole task.
func writeResult(outDir string, result any) error {
	resultPath := filepath.Join(outDir, "result.json")
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(resultPath, payload, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	computed, err := json.Marshal(map[string]string{
		"deterministic-output-path": resultPath,
	})
	if err != nil {
		return fmt.Errorf("encoding computed.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "computed.json"), computed, 0o644); err != nil {
		return fmt.Errorf("writing computed.json: %w", err)
	}
	return nil
}
