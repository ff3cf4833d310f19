package core

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the runtime and store. Callers use errors.Is
// to test for these; the InsufficientMemory and AllocationError kinds carry
// additional fields and are tested with errors.As instead.
var (
	// ErrContractNotFound is returned when bytecode for a key is absent
	// from the store.
	ErrContractNotFound = errors.New("contract not found")

	// ErrInvalidPutValue is returned when a contract's update_state or
	// update_state_from_summary entry point rejects the update.
	ErrInvalidPutValue = errors.New("invalid put value")

	// ErrUnexpectedResult is returned when a contract returns a result
	// code outside the UpdateResult domain.
	ErrUnexpectedResult = errors.New("unexpected result from contract interface")

	// ErrCompileError is returned when bytecode fails to compile.
	ErrCompileError = errors.New("contract failed to compile")
)

// InsufficientMemoryError reports a failed memory grow, with the requested
// and currently available byte counts.
type InsufficientMemoryError struct {
	Req  uint64
	Free uint64
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory, needed %d bytes but had %d bytes", e.Req, e.Free)
}

// DeserError wraps a deserialization failure at the ABI boundary with its
// textual cause, mirroring spec.md's "Deser" error kind.
type DeserError struct {
	Cause error
}

func (e *DeserError) Error() string {
	return fmt.Sprintf("deserialization failed: %s", e.Cause)
}

func (e *DeserError) Unwrap() error { return e.Cause }
