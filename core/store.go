package core

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// defaultStoreCapacity bounds the in-memory LRU cache when callers don't
// specify one. spec.md §3 leaves eviction policy as an implementation
// choice and suggests "LRU by last fetch" as a safe default.
const defaultStoreCapacity = 512

// ContractStore is the content-addressed blob cache of spec.md §4.1: an
// ordered ContractKey -> bytecode mapping, capacity-bounded in memory and
// persisted to disk so a cold Runtime can still find previously stored
// contracts. Cheaply clonable in spirit (NewContractStore returns a
// pointer sharing one lock and cache instance) so multiple Runtimes can
// share one store concurrently, as spec.md §5 expects.
type ContractStore struct {
	root    string
	cache   *lru.Cache[ContractKey, []byte]
	logger  *logrus.Logger
	metrics *Metrics
}

// NewContractStore opens (creating if absent) a store rooted at dir, with
// an in-memory LRU cache of the given capacity over its disk contents.
func NewContractStore(dir string, capacity int, logger *logrus.Logger) (*ContractStore, error) {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Join(dir, "contracts"), 0o755); err != nil {
		return nil, fmt.Errorf("create contract store at %s: %w", dir, err)
	}
	metrics := NewMetrics()
	cache, err := lru.NewWithEvict[ContractKey, []byte](capacity, func(key ContractKey, _ []byte) {
		logger.WithField("contract", key.String()).Debug("evicting contract bytecode from store cache")
		metrics.storeEntries.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("create contract store cache: %w", err)
	}
	return &ContractStore{root: dir, cache: cache, logger: logger, metrics: metrics}, nil
}

// Store persists bytecode under its content-addressed key. Storing the
// same bytes twice yields the same key and is idempotent.
func (s *ContractStore) Store(bytecode []byte) (ContractKey, error) {
	key := NewContractKey(bytecode)
	path := s.blobPath(key)
	if _, err := os.Stat(path); err != nil {
		if err := os.WriteFile(path, bytecode, 0o644); err != nil {
			return ContractKey{}, fmt.Errorf("write contract blob %s: %w", key, err)
		}
	}
	if !s.cache.Contains(key) {
		s.cache.Add(key, bytecode)
		s.metrics.storeEntries.Inc()
	}
	return key, nil
}

// Fetch returns the bytecode for key, loading it from disk into the
// cache on a miss. The second return value is false if the key is
// unknown to this store.
func (s *ContractStore) Fetch(key ContractKey) ([]byte, bool) {
	if b, ok := s.cache.Get(key); ok {
		return b, true
	}
	b, err := os.ReadFile(s.blobPath(key))
	if err != nil {
		return nil, false
	}
	s.cache.Add(key, b)
	s.metrics.storeEntries.Inc()
	return b, true
}

// Path returns the filesystem path reserved for a contract's auxiliary
// bundle (its unpacked web/ directory, see core/bundle.go). The store
// itself is format-agnostic about what collaborators place there.
func (s *ContractStore) Path(key ContractKey) string {
	return filepath.Join(s.root, "bundles", key.String())
}

func (s *ContractStore) blobPath(key ContractKey) string {
	return filepath.Join(s.root, "contracts", key.String()+".wasm")
}

// Metrics exposes the store's prometheus registry for composition into a
// larger /metrics handler.
func (s *ContractStore) Metrics() *Metrics { return s.metrics }

// statePath is where a contract's last-known packed state blob (spec.md
// §6's bundle format) is persisted, separate from its bytecode. The VM
// host itself is state-agnostic between calls; this is storage the
// gateway collaborator needs to serve GET /contract/{key}.
func (s *ContractStore) statePath(key ContractKey) string {
	return filepath.Join(s.root, "states", key.String()+".bin")
}

// PutPackedState persists the gateway-visible packed state blob for key.
func (s *ContractStore) PutPackedState(key ContractKey, state []byte) error {
	path := s.statePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, state, 0o644); err != nil {
		return fmt.Errorf("write packed state %s: %w", key, err)
	}
	return nil
}

// FetchPackedState returns the packed state blob previously stored for
// key via PutPackedState, if any.
func (s *ContractStore) FetchPackedState(key ContractKey) ([]byte, bool) {
	b, err := os.ReadFile(s.statePath(key))
	if err != nil {
		return nil, false
	}
	return b, true
}
