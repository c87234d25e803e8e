package marketplace

import (
	"errors"
	"fmt"
)

// ErrNoVoucher is returned by VoucherRegistry implementations when the
// requester wallet has no voucher associated with it.
var ErrNoVoucher = errors.New("no voucher found for address")

// ProtocolError signals that the marketplace, chain or storage
// infrastructure itself is unreachable or malfunctioning. Callers surface
// these verbatim so that "retry later" conditions stay distinguishable
// from business failures.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
