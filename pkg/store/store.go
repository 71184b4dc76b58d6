// Package store persists layout snapshots.
//
// A [Record] wraps a [layout.Snapshot] with an id, a human name and the
// hash of the scene it was taken from. Two backends implement [Store]:
//
//   - [FileStore]: one JSON file per record, used by the CLI
//   - [MongoStore]: one BSON document per record, used by the server
//
// Missing records are reported with an error that matches both
// [ErrNotFound] and the SNAPSHOT_NOT_FOUND code of package errors.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("snapshot not found")

// Record is a stored snapshot.
type Record struct {
	ID        string           `json:"id" bson:"_id"`
	Name      string           `json:"name" bson:"name"`
	Scene     string           `json:"scene,omitempty" bson:"scene,omitempty"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Snapshot  *layout.Snapshot `json:"snapshot,omitempty" bson:"snapshot,omitempty"`
}

// NewRecord creates a record with a fresh id.
func NewRecord(name, sceneHash string, snap *layout.Snapshot) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Name:      name,
		Scene:     sceneHash,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Snapshot:  snap,
	}
}

// Store saves and loads records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, r *Record) error
	// Load returns the record with the given id.
	Load(ctx context.Context, id string) (*Record, error)
	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
	// List returns every record, oldest first, without snapshots.
	List(ctx context.Context) ([]*Record, error)
	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

func notFound(id string) error {
	return apperr.Wrap(apperr.ErrCodeSnapshotNotFound, ErrNotFound, "snapshot %s", id)
}

func validate(r *Record) error {
	if err := apperr.ValidateName(r.ID); err != nil {
		return err
	}
	if r.Snapshot == nil {
		return apperr.New(apperr.ErrCodeInvalidInput, "record %s has no snapshot", r.ID)
	}
	return nil
}

// DefaultDir returns the CLI snapshot directory:
// $XDG_DATA_HOME/limn/snapshots, or ~/.local/share/limn/snapshots.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "limn", "snapshots"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "limn", "snapshots"), nil
}
