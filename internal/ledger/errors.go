package ledger

import "fmt"

// Code is a machine-readable error code. Every failure mode of the
// ledger maps to exactly one code; callers match with errors.Is against
// the exported sentinels.
type Code string

const (
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeLengthMismatch    Code = "LENGTH_MISMATCH"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeAlreadyOpen       Code = "ALREADY_OPEN"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotEligible       Code = "NOT_ELIGIBLE"
	CodeNothingToClaim    Code = "NOTHING_TO_CLAIM"
	CodeBadSignature      Code = "BAD_SIGNATURE"
	CodeNonceReused       Code = "NONCE_REUSED"
	CodePriceUnavailable  Code = "PRICE_UNAVAILABLE"
	CodeBelowMinimum      Code = "BELOW_MINIMUM"
	CodeTransferFailed    Code = "TRANSFER_FAILED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeReentrant         Code = "REENTRANT"
	CodeStorage           Code = "STORAGE"
)

// Error is the ledger error type. All errors are terminal: the ledger
// never retries internally, and a failed operation leaves state as it
// was before the call.
type Error struct {
	Code  Code
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// wrap attaches a cause to a sentinel, preserving its code.
func wrap(sentinel *Error, cause error) *Error {
	return &Error{Code: sentinel.Code, Msg: sentinel.Msg, Cause: cause}
}

// wrapf builds an error with the sentinel's code and a formatted message.
func wrapf(sentinel *Error, format string, args ...any) *Error {
	return &Error{Code: sentinel.Code, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Msg: "amount must be positive"}
	ErrLengthMismatch    = &Error{Code: CodeLengthMismatch, Msg: "reward asset and amount lengths differ"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Msg: "caller lacks the required role"}
	ErrAlreadyOpen       = &Error{Code: CodeAlreadyOpen, Msg: "principal already has an open session"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Msg: "transition not allowed from current status"}
	ErrNotEligible       = &Error{Code: CodeNotEligible, Msg: "session is not in exited status"}
	ErrNothingToClaim    = &Error{Code: CodeNothingToClaim, Msg: "session has no recorded rewards"}
	ErrBadSignature      = &Error{Code: CodeBadSignature, Msg: "signature does not recover to the attestor key"}
	ErrNonceReused       = &Error{Code: CodeNonceReused, Msg: "attestation nonce already consumed"}
	ErrPriceUnavailable  = &Error{Code: CodePriceUnavailable, Msg: "no configured source quoted the asset"}
	ErrBelowMinimum      = &Error{Code: CodeBelowMinimum, Msg: "reward value below the exit floor"}
	ErrTransferFailed    = &Error{Code: CodeTransferFailed, Msg: "value transfer failed"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Msg: "insufficient balance"}
	ErrReentrant         = &Error{Code: CodeReentrant, Msg: "operation already in progress for principal"}
	ErrStorage           = &Error{Code: CodeStorage, Msg: "storage failure"}
)
