package io

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/matzehuels/limn/pkg/cassowary"
	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
)

// WriteSnapshot encodes s as indented JSON and writes it to w.
func WriteSnapshot(s *layout.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportSnapshot writes s to a JSON file at path.
func ExportSnapshot(s *layout.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteSnapshot(s, f)
}

// ReadSnapshot decodes and validates a snapshot from r. ReadSnapshot does
// not close r.
func ReadSnapshot(r io.Reader) (*layout.Snapshot, error) {
	var s layout.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidFormat, err, "decode snapshot")
	}
	if err := ValidateSnapshot(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ImportSnapshot reads a snapshot file at path.
func ImportSnapshot(path string) (*layout.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// ValidateSnapshot checks the references and values of a decoded snapshot.
func ValidateSnapshot(s *layout.Snapshot) error {
	aux := make(map[layout.EntityID]int, len(s.Entities))
	for _, e := range s.Entities {
		if e.ID == 0 {
			return apperr.New(apperr.ErrCodeInvalidFormat, "entity %q has no id", e.Name)
		}
		if _, dup := aux[e.ID]; dup {
			return apperr.New(apperr.ErrCodeInvalidFormat, "duplicate entity id %d", e.ID)
		}
		if e.Aux < 0 {
			return apperr.New(apperr.ErrCodeInvalidFormat, "entity %d: negative aux count", e.ID)
		}
		aux[e.ID] = e.Aux
	}

	ref := func(v layout.VarRef) error {
		n, ok := aux[v.Entity]
		if !ok {
			return apperr.New(apperr.ErrCodeInvalidFormat, "unknown entity %d", v.Entity)
		}
		if v.Aux < 0 || v.Aux > n {
			return apperr.New(apperr.ErrCodeInvalidFormat, "entity %d has no helper set %d", v.Entity, v.Aux)
		}
		if v.Kind < layout.Left || v.Kind > layout.Height {
			return apperr.New(apperr.ErrCodeInvalidFormat, "invalid variable kind %d", v.Kind)
		}
		return nil
	}
	strength := func(f float64) error {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return apperr.New(apperr.ErrCodeInvalidFormat, "invalid strength %v", f)
		}
		return nil
	}

	for i, c := range s.Constraints {
		if _, ok := aux[c.Owner]; !ok {
			return apperr.New(apperr.ErrCodeInvalidFormat, "constraint %d: unknown owner %d", i, c.Owner)
		}
		if _, err := cassowary.ParseOperator(c.Op); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidFormat, err, "constraint %d", i)
		}
		if err := strength(c.Strength); err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		if math.IsNaN(c.Constant) || math.IsInf(c.Constant, 0) {
			return apperr.New(apperr.ErrCodeInvalidFormat, "constraint %d: non-finite constant", i)
		}
		for _, t := range c.Terms {
			if err := ref(t.Var); err != nil {
				return fmt.Errorf("constraint %d: %w", i, err)
			}
		}
	}
	for i, e := range s.Edits {
		if err := ref(e.Var); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
		if err := strength(e.Strength); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return nil
}
