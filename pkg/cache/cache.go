// Package cache stores solved scene results keyed by content hash.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a Redis keyspace, for the HTTP server
//   - [NullCache]: never stores anything (used by --no-cache)
//
// # Keys
//
// A [Keyer] derives keys from the hash of a scene document and the options
// that influence the solved output:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ResultKey(cache.Hash(sceneBytes), cache.ResultKeyOpts{Format: "json"})
//
// [NewScopedKeyer] prefixes every key, which keeps tenants apart when they
// share a backend.
//
// # Observability
//
// Backends report hits, misses and writes through
// [observability.CacheHooks], with the key's first segment as key type.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is reported with ok == false
	// and a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ResultKey is the key of a solved result for a scene.
	ResultKey(sceneHash string, opts ResultKeyOpts) string
	// SnapshotKey is the key of a solver snapshot for a scene.
	SnapshotKey(sceneHash string) string
}

// ResultKeyOpts are the options that change a solved result.
type ResultKeyOpts struct {
	// Stage separates the solved layout from the rendered artifacts.
	Stage  string `json:"stage,omitempty"`
	Format string `json:"format,omitempty"`
	// Edits is the hash of the edit list applied after building, if any.
	Edits string `json:"edits,omitempty"`
}

// Pipeline stages stored under result keys.
const (
	StageLayout   = "layout"
	StageArtifact = "artifact"
)

// Entry lifetimes used by the solve pipeline.
const (
	// TTLResult is the lifetime of solved results and rendered artifacts.
	TTLResult = 7 * 24 * time.Hour
	// TTLSnapshot is the lifetime of cached solver snapshots.
	TTLSnapshot = 7 * 24 * time.Hour
)

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<hash of scene and options>".
func (DefaultKeyer) ResultKey(sceneHash string, opts ResultKeyOpts) string {
	return hashKey("result", sceneHash, opts)
}

// SnapshotKey returns "snapshot:<hash of scene>".
func (DefaultKeyer) SnapshotKey(sceneHash string) string {
	return hashKey("snapshot", sceneHash)
}

// DefaultDir returns the CLI cache directory: $XDG_CACHE_HOME/limn, or
// ~/.cache/limn.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "limn"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "limn"), nil
}

// keyType returns the first segment of a key, skipping scope prefixes
// produced by [ScopedKeyer].
func keyType(key string) string {
	for _, t := range []string{"result", "snapshot"} {
		if strings.HasPrefix(key, t+":") || strings.Contains(key, ":"+t+":") {
			return t
		}
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
