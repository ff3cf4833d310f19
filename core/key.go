package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContractKey is the content-hash identifier of a contract's bytecode.
// Two contracts with identical bytes always resolve to the same key.
type ContractKey [sha256.Size]byte

// NewContractKey hashes bytecode into its content-addressed key.
func NewContractKey(bytecode []byte) ContractKey {
	return ContractKey(sha256.Sum256(bytecode))
}

// String renders the key as lowercase hex, the textual form used on disk
// and at the HTTP boundary.
func (k ContractKey) String() string {
	return hex.EncodeToString(k[:])
}

// DecodeContractKey parses a lowercased textual form produced by String.
func DecodeContractKey(s string) (ContractKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ContractKey{}, fmt.Errorf("decode contract key %q: %w", s, err)
	}
	if len(b) != sha256.Size {
		return ContractKey{}, fmt.Errorf("decode contract key %q: want %d bytes, got %d", s, sha256.Size, len(b))
	}
	var k ContractKey
	copy(k[:], b)
	return k, nil
}
