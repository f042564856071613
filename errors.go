package hotpatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a nil Func or an unknown policy is supplied
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoFunctions is returned by Sequence when called without functions
	ErrNoFunctions = fmt.Errorf("%w: no functions provided", ErrInvalidArgument)

	// ErrEntryFinal is returned when patching a key that has been marked final
	ErrEntryFinal = errors.New("entry is final")

	// ErrEntryMissing is returned by Restore and SetFinal for unknown keys
	ErrEntryMissing = errors.New("no entry for key")

	// ErrInvalidOriginal is returned by Restore when the stored original is unusable
	ErrInvalidOriginal = errors.New("no valid original")

	// ErrInvalidTarget is returned by Control for targets that are not patchers
	ErrInvalidTarget = errors.New("invalid target")

	// ErrEmptyLookup is returned by Get for unknown keys under SignalFailure
	ErrEmptyLookup = errors.New("no method registered for key")

	// ErrInvalidPolicy is returned by Get when the configured empty-lookup policy is unknown
	ErrInvalidPolicy = errors.New("invalid empty-lookup policy")
)

// PatchError describes a failed patcher operation.
type PatchError struct {
	Op  OperationKind
	Key string
	Err error
}

func (e *PatchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("hotpatch: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("hotpatch: %s: %v", e.Op, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

func newPatchError(op OperationKind, key string, err error) *PatchError {
	return &PatchError{Op: op, Key: key, Err: err}
}

// IsFinal reports whether err was caused by patching a final entry
func IsFinal(err error) bool {
	return errors.Is(err, ErrEntryFinal)
}

// IsMissing reports whether err was caused by an unknown key
func IsMissing(err error) bool {
	return errors.Is(err, ErrEntryMissing) || errors.Is(err, ErrEmptyLookup)
}
