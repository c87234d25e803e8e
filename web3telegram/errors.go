package web3telegram

import (
	"fmt"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// WorkflowError is a business-logic failure: no admissible order, schema
// mismatch, validation failure, insufficient stake. It carries a stable
// top-level message plus the original cause for diagnostics.
type WorkflowError struct {
	Message string
	Cause   error
}

func (e *WorkflowError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// ValidationError reports an invalid input, raised before any network
// call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// wrapWorkflow classifies an error on its way out of an SDK operation:
// protocol errors pass through verbatim, everything else is wrapped under
// the operation's stable message.
func wrapWorkflow(message string, err error) error {
	if err == nil {
		return nil
	}
	if marketplace.IsProtocolError(err) {
		return err
	}
	return &WorkflowError{Message: message, Cause: err}
}
