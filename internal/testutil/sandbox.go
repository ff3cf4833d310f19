// Package testutil provides small test-only helpers shared across
// contractvm's packages.
package testutil

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Sandbox provides an isolated temporary directory for tests that need a
// disk-backed ContractStore or bundle destination.
type Sandbox struct {
	Root string
}

// NewSandbox creates a new Sandbox rooted at a temporary directory.
func NewSandbox() (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "contractvm_sandbox")
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: dir}, nil
}

// Path returns the absolute path for a file within the sandbox.
func (s *Sandbox) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// WriteFile writes data to the named file inside the sandbox using the
// provided permissions.
func (s *Sandbox) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(s.Path(name)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(name), data, perm)
}

// ReadFile reads and returns data from the named file inside the sandbox.
func (s *Sandbox) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}

// Cleanup removes all files within the sandbox and deletes the root directory.
func (s *Sandbox) Cleanup() error {
	return os.RemoveAll(s.Root)
}

// BuildContractBundle packs files (relative to web/) into a tar archive,
// xz-compresses it, and prefixes the result with the length-prefixed
// metadata/web layout core.UnpackBundle expects (spec.md §6). Used by
// gateway and core tests that need a realistic packed-state blob without
// each reimplementing the bundle wire format.
func BuildContractBundle(metadata []byte, files map[string][]byte) ([]byte, error) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for name, contents := range files {
		hdr := &tar.Header{Name: "web/" + name, Mode: 0o644, Size: int64(len(contents))}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(contents); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	if err != nil {
		return nil, err
	}
	if _, err := xw.Write(tarBuf.Bytes()); err != nil {
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint64(len(metadata)))
	out.Write(metadata)
	_ = binary.Write(&out, binary.BigEndian, uint64(xzBuf.Len()))
	out.Write(xzBuf.Bytes())
	return out.Bytes(), nil
}
