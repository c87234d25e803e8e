package dapp

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Env is the parsed iExec worker environment contract.
type Env struct {
	// Out is the directory the result artifacts are written to.
	Out string

	// In is the mount root for protected data files.
	In string

	// BulkSliceSize is the number of bulk recipient slots; 0 means
	// single-recipient mode.
	BulkSliceSize int

	// AppDeveloperSecret is the raw JSON app secret.
	AppDeveloperSecret string

	// RequesterSecret is the raw JSON requester secret at index 1.
	RequesterSecret string

	// DatasetFilenames holds one mounted filename per slot.
	DatasetFilenames []string
}

// ParseEnv reads the worker contract through lookup (os.Getenv in
// production). IEXEC_OUT is the only unconditionally required variable.
func ParseEnv(lookup func(string) string) (Env, error) {
	env := Env{
		Out:                lookup("IEXEC_OUT"),
		In:                 lookup("IEXEC_IN"),
		AppDeveloperSecret: lookup("IEXEC_APP_DEVELOPER_SECRET"),
		RequesterSecret:    lookup("IEXEC_REQUESTER_SECRET_1"),
	}
	if env.Out == "" {
		return Env{}, fmt.Errorf("IEXEC_OUT is required")
	}

	if raw := lookup("IEXEC_BULK_SLICE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Env{}, fmt.Errorf("IEXEC_BULK_SLICE_SIZE must be a non-negative integer, got %q", raw)
		}
		env.BulkSliceSize = n
	}

	if env.BulkSliceSize > 0 {
		env.DatasetFilenames = make([]string, env.BulkSliceSize)
		for i := 0; i < env.BulkSliceSize; i++ {
			key := fmt.Sprintf("IEXEC_DATASET_%d_FILENAME", i)
			name := lookup(key)
			if name == "" {
				return Env{}, fmt.Errorf("%s is required in bulk mode", key)
			}
			env.DatasetFilenames[i] = name
		}
	} else if name := lookup("IEXEC_DATASET_FILENAME"); name != "" {
		env.DatasetFilenames = []string{name}
	}

	return env, nil
}

// SlotCount is the number of recipient slots the task processes.
func (e Env) SlotCount() int {
	if e.BulkSliceSize > 0 {
		return e.BulkSliceSize
	}
	return 1
}

// DatasetPath resolves the mounted path of a slot's protected data.
func (e Env) DatasetPath(slot int) (string, error) {
	if slot < 0 || slot >= len(e.DatasetFilenames) {
		return "", fmt.Errorf("no dataset filename for slot %d", slot)
	}
	return filepath.Join(e.In, e.DatasetFilenames[slot]), nil
}
