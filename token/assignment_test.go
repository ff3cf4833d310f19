package token

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"contractvm/core"
)

// Ported from to_be_signed_test in
// original_source/modules/antiflood-tokens/interfaces/src/lib.rs: tier
// Day90 (wire value 12), issue time 2021-07-28T00:00:00Z (Unix 1627430400),
// assignee all-ones — the canonical 41-byte message is
// 0x0C ∥ LE(1627430400) ∥ [0x01]x32.
func TestToBeSigned(t *testing.T) {
	assignee := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range assignee {
		assignee[i] = 1
	}
	issueTime := time.Date(2021, time.July, 28, 0, 0, 0, 0, time.UTC)
	if got := issueTime.Unix(); got != 1627430400 {
		t.Fatalf("sanity check failed: issueTime.Unix() = %d, want 1627430400", got)
	}

	msg, err := ToBeSigned(issueTime, assignee, Day90)
	if err != nil {
		t.Fatalf("ToBeSigned: %v", err)
	}
	if len(msg) != 41 {
		t.Fatalf("message length = %d, want 41", len(msg))
	}
	if msg[0] != byte(Day90) {
		t.Errorf("tier byte = %d, want %d", msg[0], byte(Day90))
	}
	if int(Day90) != 12 {
		t.Fatalf("Day90 wire value = %d, want 12", int(Day90))
	}

	wantTimestamp := []byte{0x00, 0x9E, 0x00, 0x61, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(msg[1:9], wantTimestamp) {
		t.Errorf("timestamp bytes = % x, want % x", msg[1:9], wantTimestamp)
	}

	for i := 9; i < 41; i++ {
		if msg[i] != 1 {
			t.Errorf("assignee byte %d = %d, want 1", i-9, msg[i])
		}
	}
}

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	assignee, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	slot := Hour1.NormalizeToNext(time.Now().UTC())

	assignment, err := Sign(priv, Hour1, slot, assignee, core.ContractKey{}, []byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := assignment.Verify(pub); err != nil {
		t.Errorf("Verify failed on a freshly signed assignment: %v", err)
	}

	tampered := assignment
	tampered.TimeSlot = tampered.TimeSlot.Add(time.Hour)
	if err := tampered.Verify(pub); err == nil {
		t.Error("Verify should reject an assignment whose time_slot was altered after signing")
	}
}

func TestAssignmentOrderingByTimeSlotOnly(t *testing.T) {
	base := Hour1.NormalizeToNext(time.Now().UTC())
	earlier := TokenAssignment{Tier: Day1, TimeSlot: base}
	later := TokenAssignment{Tier: Min1, TimeSlot: base.Add(time.Hour)}
	assignments := []TokenAssignment{later, earlier}
	sortByTimeSlot(assignments)
	if !assignments[0].TimeSlot.Equal(earlier.TimeSlot) {
		t.Error("sortByTimeSlot must order solely by TimeSlot, ignoring Tier")
	}
}

func TestNextPreviousSlot(t *testing.T) {
	slot := Hour3.NormalizeToNext(time.Now().UTC())
	a := TokenAssignment{Tier: Hour3, TimeSlot: slot}
	if !a.NextSlot().Equal(slot.Add(3 * time.Hour)) {
		t.Error("NextSlot should advance by one tier duration")
	}
	if !a.PreviousSlot().Equal(slot.Add(-3 * time.Hour)) {
		t.Error("PreviousSlot should recede by one tier duration")
	}
}
