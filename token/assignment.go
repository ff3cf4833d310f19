package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2s"

	"contractvm/core"
)

// TokenAssignmentHash is a BLAKE2s-256 digest binding an assignment to the
// application payload it was issued for (spec.md §4.5).
type TokenAssignmentHash [32]byte

// signedMsgSize is the length of the canonical (tier, time_slot, assignee)
// tuple an allocator signs: one tier byte, an 8-byte little-endian Unix
// timestamp, and a 32-byte Ed25519 public key (spec.md §4.5). Ported from
// TokenAssignment::SIGNED_MSG_SIZE in
// original_source/modules/antiflood-tokens/interfaces/src/lib.rs.
const signedMsgSize = 1 + 8 + ed25519.PublicKeySize

// ErrInvalidSignature is returned by Verify when the signature does not
// match the assignment's (tier, time_slot, assignee) tuple.
var ErrInvalidSignature = errors.New("token: invalid assignment signature")

// TokenAssignment is a single slot grant within a TokenAllocationRecord
// (spec.md §4.5). Grounded on TokenAssignment in
// original_source/modules/antiflood-tokens/interfaces/src/lib.rs.
type TokenAssignment struct {
	Tier           Tier
	TimeSlot       time.Time
	Assignee       ed25519.PublicKey
	Signature      []byte
	AssignmentHash TokenAssignmentHash
	TokenRecord    core.ContractKey
}

// ToBeSigned builds the 41-byte canonical message an allocator's private
// key signs over: tier_byte ∥ timestamp_seconds_le ∥ assignee (spec.md
// §4.5). issueTime is truncated to whole seconds, matching
// DateTime::timestamp() in the original.
func ToBeSigned(issueTime time.Time, assignee ed25519.PublicKey, tier Tier) ([signedMsgSize]byte, error) {
	var out [signedMsgSize]byte
	if len(assignee) != ed25519.PublicKeySize {
		return out, fmt.Errorf("token: assignee must be %d bytes, got %d", ed25519.PublicKeySize, len(assignee))
	}
	out[0] = byte(tier)
	binary.LittleEndian.PutUint64(out[1:9], uint64(issueTime.Unix()))
	copy(out[9:], assignee)
	return out, nil
}

// Sign produces a TokenAssignment for the given tier and slot, signed by
// priv, with AssignmentHash set to the BLAKE2s-256 digest of payload (the
// application state the assignment is bound to).
func Sign(priv ed25519.PrivateKey, tier Tier, timeSlot time.Time, assignee ed25519.PublicKey, tokenRecord core.ContractKey, payload []byte) (TokenAssignment, error) {
	msg, err := ToBeSigned(timeSlot, assignee, tier)
	if err != nil {
		return TokenAssignment{}, err
	}
	hash := blake2s.Sum256(payload)
	sig := ed25519.Sign(priv, msg[:])
	return TokenAssignment{
		Tier:           tier,
		TimeSlot:       timeSlot,
		Assignee:       append(ed25519.PublicKey(nil), assignee...),
		Signature:      sig,
		AssignmentHash: hash,
		TokenRecord:    tokenRecord,
	}, nil
}

// Verify checks a's signature against generatorKey and that TimeSlot is a
// valid slot boundary for a.Tier.
func (a TokenAssignment) Verify(generatorKey ed25519.PublicKey) error {
	if !a.Tier.IsValidSlot(a.TimeSlot) {
		return fmt.Errorf("token: time_slot %s is not a valid %s slot", a.TimeSlot, a.Tier)
	}
	msg, err := ToBeSigned(a.TimeSlot, a.Assignee, a.Tier)
	if err != nil {
		return err
	}
	if !ed25519.Verify(generatorKey, msg[:], a.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// NextSlot returns the slot immediately following this assignment's, one
// tier duration later.
func (a TokenAssignment) NextSlot() time.Time {
	return a.TimeSlot.Add(a.Tier.Duration())
}

// PreviousSlot returns the slot immediately preceding this assignment's,
// one tier duration earlier.
func (a TokenAssignment) PreviousSlot() time.Time {
	return a.TimeSlot.Add(-a.Tier.Duration())
}

// Equal reports whether two assignments carry identical fields, matching
// the original's derived PartialEq (which compares every field, not just
// TimeSlot as Ord/PartialOrd do).
func (a TokenAssignment) Equal(other TokenAssignment) bool {
	return a.Tier == other.Tier &&
		a.TimeSlot.Equal(other.TimeSlot) &&
		a.Assignee.Equal(other.Assignee) &&
		bytesEqual(a.Signature, other.Signature) &&
		a.AssignmentHash == other.AssignmentHash &&
		a.TokenRecord == other.TokenRecord
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders an assignment the way the original's Display impl does,
// with the assignee base58-encoded for compact display.
func (a TokenAssignment) String() string {
	return fmt.Sprintf("{ %s @ %s for %s}", a.Tier, a.TimeSlot.Format(time.RFC3339), base58.Encode(a.Assignee))
}
