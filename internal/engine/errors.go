package engine

import (
	"errors"
	"fmt"
)

// GuardError represents an error detected by the vault runtime guard.
//
// Guard errors include:
//   - Unknown binding: Reveal of a name never created on this guard
//   - Scope closed: use of a SafeScope after its block exited
//   - Key destroyed: decryption after the binding was destroyed
//   - Decrypt failed: ciphertext authentication failure
//
// A guard error at runtime for a statically clean unit indicates a
// soundness defect in the analyzer, not a normal failure category.
type GuardError struct {
	// Code identifies the error category.
	Code GuardErrorCode

	// Message is a human-readable description.
	Message string

	// Binding identifies the affected vault binding, if any.
	Binding string

	// Block identifies the safe block scope, if any.
	Block string
}

// GuardErrorCode categorizes guard errors.
type GuardErrorCode string

const (
	// ErrCodeUnknownBinding indicates the binding was never created.
	ErrCodeUnknownBinding GuardErrorCode = "UNKNOWN_BINDING"

	// ErrCodeScopeClosed indicates use of an exited safe scope.
	ErrCodeScopeClosed GuardErrorCode = "SCOPE_CLOSED"

	// ErrCodeKeyDestroyed indicates the binding's key was zeroized.
	ErrCodeKeyDestroyed GuardErrorCode = "KEY_DESTROYED"

	// ErrCodeDecryptFailed indicates ciphertext authentication failed.
	ErrCodeDecryptFailed GuardErrorCode = "DECRYPT_FAILED"
)

// Error implements the error interface.
func (e *GuardError) Error() string {
	switch {
	case e.Binding != "" && e.Block != "":
		return fmt.Sprintf("%s: %s (binding=%s, block=%s)", e.Code, e.Message, e.Binding, e.Block)
	case e.Binding != "":
		return fmt.Sprintf("%s: %s (binding=%s)", e.Code, e.Message, e.Binding)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsUnknownBinding reports whether err is an unknown-binding guard error.
// Uses errors.As to handle wrapped errors.
func IsUnknownBinding(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge) && ge.Code == ErrCodeUnknownBinding
}

// IsScopeClosed reports whether err is a scope-closed guard error.
func IsScopeClosed(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge) && ge.Code == ErrCodeScopeClosed
}

func newGuardError(code GuardErrorCode, binding, msg string) *GuardError {
	return &GuardError{Code: code, Message: msg, Binding: binding}
}
