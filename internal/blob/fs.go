// Package blob provides content-addressed storage for captured screenshots.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Store persists opaque byte blobs keyed by a content-derived reference.
type Store interface {
	// Put stores data and returns its reference. Storing the same bytes
	// twice returns the same reference without rewriting.
	Put(data []byte) (string, error)
	// Get retrieves the blob for a reference, or an error when unknown.
	Get(ref string) ([]byte, error)
}

var refPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidRef reports whether ref is a well-formed blob reference. The server
// uses this to reject path-traversal attempts before touching the filesystem.
func ValidRef(ref string) bool {
	return refPattern.MatchString(ref)
}

// FSStore implements content-addressed blob storage on the filesystem.
// Blobs are stored under root using their SHA-256 hex as the filename; the
// first two characters of the hash form a subdirectory to keep directory
// sizes bounded.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at the given directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put stores data and returns its SHA-256 hex reference.
func (s *FSStore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := s.path(ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob subdirectory: %w", err)
	}

	// Write via temp file + rename so readers never observe partial blobs.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize blob: %w", err)
	}
	return ref, nil
}

// Get retrieves a blob by reference.
func (s *FSStore) Get(ref string) ([]byte, error) {
	if !ValidRef(ref) {
		return nil, fmt.Errorf("invalid blob reference %q", ref)
	}
	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s not found", ref)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *FSStore) path(ref string) string {
	return filepath.Join(s.root, ref[:2], ref)
}
