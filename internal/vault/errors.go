package vault

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized    = errors.New("vault: not initialized")
	ErrAlreadyExists     = errors.New("vault: already exists")
	ErrAlreadyUnlocked   = errors.New("vault: already unlocked")
	ErrLocked            = errors.New("vault: locked")
	ErrUnlockFailed      = errors.New("vault: unlock failed")
	ErrInconsistentState = errors.New("vault: inconsistent state")
	ErrNotFound          = errors.New("vault: entry not found")
	ErrVaultBusy         = errors.New("vault: in use by another process")
	ErrHistoryDisabled   = errors.New("vault: snapshot history disabled")
)

// FailureKind tells apart the two causes of a failed unlock
type FailureKind int

const (
	// FailureAuthentication covers a wrong passphrase and a corrupted or
	// tampered vault file. The two are indistinguishable by construction.
	FailureAuthentication FailureKind = iota
	// FailureIO covers unreadable files and a missing salt
	FailureIO
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuthentication:
		return "authentication"
	case FailureIO:
		return "io"
	default:
		return "unknown"
	}
}

// UnlockError is returned by Unlock. It always matches ErrUnlockFailed.
type UnlockError struct {
	Kind FailureKind
	Err  error
}

func (e *UnlockError) Error() string {
	if e.Kind == FailureAuthentication {
		return ErrUnlockFailed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUnlockFailed, e.Err)
}

func (e *UnlockError) Unwrap() error { return e.Err }

func (e *UnlockError) Is(target error) bool { return target == ErrUnlockFailed }

// ValidationError reports malformed input rejected before any state change
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vault: invalid %s: %s", e.Field, e.Reason)
}
