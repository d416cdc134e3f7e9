// Package archive keeps a content-addressed record of every model
// artifact the pipeline produces, so a generated SQL statement or
// answer can be traced back to the exact prompt that produced it.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zen-systems/retailgate/pkg/artifact"
)

// Ref points at one archived artifact.
type Ref struct {
	Capability string `json:"capability"`
	SHA256     string `json:"sha256"`
}

// Store manages the content-addressed archive.
type Store struct {
	BasePath string
}

// NewStore creates an archive rooted at basePath, defaulting to
// ~/.retailgate/archive.
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".retailgate", "archive")
	}

	if err := os.MkdirAll(filepath.Join(basePath, "objects"), 0755); err != nil {
		return nil, err
	}
	return &Store{BasePath: basePath}, nil
}

// Put stores an artifact by the SHA256 of its JSON encoding in a
// sharded directory layout.
func (s *Store) Put(capabilityName string, art *artifact.Artifact) (Ref, error) {
	data, err := json.Marshal(art)
	if err != nil {
		return Ref{}, err
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	// Shard by first 2 chars
	shard := hash[:2]
	dir := filepath.Join(s.BasePath, "objects", shard)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Ref{}, err
	}

	path := filepath.Join(dir, hash+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Ref{}, err
	}

	return Ref{Capability: capabilityName, SHA256: hash}, nil
}

// Get loads an archived artifact by hash.
func (s *Store) Get(hash string) (*artifact.Artifact, error) {
	if len(hash) < 2 {
		return nil, fmt.Errorf("invalid hash %q", hash)
	}
	path := filepath.Join(s.BasePath, "objects", hash[:2], hash+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var art artifact.Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, err
	}
	return &art, nil
}
