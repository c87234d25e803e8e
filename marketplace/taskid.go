package marketplace

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ComputeTaskID derives the deterministic task identifier for a deal and
// a task index: keccak256(dealid || uint256(index)), matching the on-chain
// derivation.
func ComputeTaskID(dealID DealID, index int) (TaskID, error) {
	if index < 0 {
		return "", fmt.Errorf("task index must not be negative, got %d", index)
	}

	dealBytes, err := hex.DecodeString(strings.TrimPrefix(string(dealID), "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid deal id %q: %w", dealID, err)
	}
	if len(dealBytes) != 32 {
		return "", fmt.Errorf("invalid deal id %q: expected 32 bytes, got %d", dealID, len(dealBytes))
	}

	var idx [32]byte
	binary.BigEndian.PutUint64(idx[24:], uint64(index))

	h := sha3.NewLegacyKeccak256()
	h.Write(dealBytes)
	h.Write(idx[:])
	return TaskID("0x" + hex.EncodeToString(h.Sum(nil))), nil
}
