package escrow

import "fmt"

// Kind groups errors by how a caller can react to them.
type Kind string

const (
	// KindValidation errors are fixed by changing the request.
	KindValidation Kind = "validation"
	// KindTemporal errors are fixed by waiting.
	KindTemporal Kind = "temporal"
	// KindState errors signal a violated precondition on stored state.
	KindState Kind = "state"
	// KindAuthorization errors are never retryable by the same caller.
	KindAuthorization Kind = "authorization"
)

// Code is the stable numeric identifier of a program error.
type Code uint32

// Error is a program error with a stable code, name and message.
type Error struct {
	Code    Code
	Name    string
	Message string
	Kind    Kind
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("escrow error %s (%d): %s: %v", e.Name, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("escrow error %s (%d): %s", e.Name, e.Code, e.Message)
}

// Is matches program errors by code so wrapped copies compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// with returns a copy of e carrying cause.
func (e *Error) with(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	ErrZeroAmount           = &Error{Code: 6000, Name: "ZeroAmount", Message: "Zero amount", Kind: KindValidation}
	ErrLocked               = &Error{Code: 6001, Name: "Locked", Message: "Locked", Kind: KindTemporal}
	ErrAccountAlreadyExists = &Error{Code: 6002, Name: "AccountAlreadyExists", Message: "Account already exists", Kind: KindState}
	ErrRecordNotFound       = &Error{Code: 6003, Name: "RecordNotFound", Message: "Escrow record not found", Kind: KindState}
	ErrUnauthorized         = &Error{Code: 6004, Name: "Unauthorized", Message: "Caller does not own the escrow record", Kind: KindAuthorization}
	ErrInsufficientFunds    = &Error{Code: 6005, Name: "InsufficientFunds", Message: "Insufficient funds", Kind: KindValidation}
	ErrAddressMismatch      = &Error{Code: 6006, Name: "AddressMismatch", Message: "Account address does not match its derivation", Kind: KindAuthorization}
	ErrVaultNotInitialized  = &Error{Code: 6007, Name: "VaultNotInitialized", Message: "Vault not initialized", Kind: KindState}
	ErrOverflow             = &Error{Code: 6008, Name: "Overflow", Message: "Arithmetic overflow", Kind: KindValidation}
)
