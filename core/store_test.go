package core

import (
	"testing"

	"contractvm/internal/testutil"
)

func TestContractStoreRoundTrip(t *testing.T) {
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Cleanup()

	store, err := NewContractStore(sandbox.Root, 4, nil)
	if err != nil {
		t.Fatalf("NewContractStore: %v", err)
	}

	bytecode := []byte("fake wasm bytecode")
	key, err := store.Store(bytecode)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if key != NewContractKey(bytecode) {
		t.Error("Store should return the content-addressed key for bytecode")
	}

	got, ok := store.Fetch(key)
	if !ok {
		t.Fatal("Fetch should find a key just Stored")
	}
	if string(got) != string(bytecode) {
		t.Errorf("Fetch = %q, want %q", got, bytecode)
	}
}

func TestContractStoreStoreIsIdempotent(t *testing.T) {
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Cleanup()

	store, err := NewContractStore(sandbox.Root, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	bytecode := []byte("idempotent bytecode")
	key1, err := store.Store(bytecode)
	if err != nil {
		t.Fatal(err)
	}
	key2, err := store.Store(bytecode)
	if err != nil {
		t.Fatal(err)
	}
	if key1 != key2 {
		t.Error("storing identical bytecode twice must yield the same key")
	}
}

func TestContractStoreFetchUnknownKey(t *testing.T) {
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Cleanup()

	store, err := NewContractStore(sandbox.Root, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Fetch(NewContractKey([]byte("never stored"))); ok {
		t.Error("Fetch should report false for an unknown key")
	}
}

func TestContractStoreEvictsPastCapacityButSurvivesOnDisk(t *testing.T) {
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Cleanup()

	store, err := NewContractStore(sandbox.Root, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	keyA, err := store.Store([]byte("contract A"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Store([]byte("contract B")); err != nil {
		t.Fatal(err)
	}

	// A's cache entry was evicted in favor of B, but the blob survives on
	// disk and Fetch transparently reloads it.
	got, ok := store.Fetch(keyA)
	if !ok {
		t.Fatal("Fetch should reload an evicted-from-cache blob from disk")
	}
	if string(got) != "contract A" {
		t.Errorf("Fetch = %q, want %q", got, "contract A")
	}
}

func TestContractStorePackedState(t *testing.T) {
	sandbox, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Cleanup()

	store, err := NewContractStore(sandbox.Root, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	key := NewContractKey([]byte("some contract"))
	if _, ok := store.FetchPackedState(key); ok {
		t.Fatal("FetchPackedState should report false before any PutPackedState")
	}

	if err := store.PutPackedState(key, []byte("packed state bytes")); err != nil {
		t.Fatalf("PutPackedState: %v", err)
	}
	got, ok := store.FetchPackedState(key)
	if !ok {
		t.Fatal("FetchPackedState should find a state just put")
	}
	if string(got) != "packed state bytes" {
		t.Errorf("FetchPackedState = %q, want %q", got, "packed state bytes")
	}
}
