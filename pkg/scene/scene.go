// Package scene reads declarative layout documents and builds widget trees
// from them.
//
// # Document Format
//
// A scene lists widgets, each with an optional parent, an optional
// container layout and a list of constraints, plus an optional list of
// edits applied after building. The same document can be written in TOML,
// YAML or JSON; the format is chosen from the file extension:
//
//	name = "dashboard"
//
//	[[widgets]]
//	name = "window"
//	layout = "horizontal"
//	spacing = 8
//	constraints = [
//	  { kind = "top_left", args = [0, 0] },
//	  { kind = "size", args = [800, 600] },
//	]
//
//	[[widgets]]
//	name = "sidebar"
//	parent = "window"
//	constraints = [{ kind = "width", args = [200] }]
//
//	[[edits]]
//	widget = "sidebar"
//	side = "width"
//	value = 240
//	strength = "strong"
//
// # Constraint Kinds
//
// Kinds are the snake_case names of the builders in package layout
// ("align_left", "bound_by", "min_size", ...). Kinds that relate two
// widgets take a target; an empty target means the widget's parent.
// Strength is "weak", "medium", "strong", "required" or a number; an empty
// strength keeps the builder's default.
//
// # Errors
//
// Structural problems (unknown kinds or targets, missing parents, cycles,
// duplicate names) carry the INVALID_SCENE code from package errors,
// unparsable strengths carry INVALID_STRENGTH and unknown file formats
// INVALID_FORMAT.
package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperr "github.com/matzehuels/limn/pkg/errors"
)

// Format is a scene document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", apperr.New(apperr.ErrCodeInvalidFormat, "unsupported scene file %q (want .toml, .yaml or .json)", path)
}

// Scene is a decoded scene document.
type Scene struct {
	Name    string   `toml:"name" yaml:"name" json:"name,omitempty"`
	Widgets []Widget `toml:"widgets" yaml:"widgets" json:"widgets"`
	Edits   []Edit   `toml:"edits" yaml:"edits" json:"edits,omitempty"`
}

// Widget declares one widget.
type Widget struct {
	Name   string `toml:"name" yaml:"name" json:"name"`
	Parent string `toml:"parent" yaml:"parent" json:"parent,omitempty"`
	// Layout is "horizontal", "vertical", "grid" or empty.
	Layout      string       `toml:"layout" yaml:"layout" json:"layout,omitempty"`
	Columns     int          `toml:"columns" yaml:"columns" json:"columns,omitempty"`
	Spacing     float64      `toml:"spacing" yaml:"spacing" json:"spacing,omitempty"`
	Hidden      bool         `toml:"hidden" yaml:"hidden" json:"hidden,omitempty"`
	Constraints []Constraint `toml:"constraints" yaml:"constraints" json:"constraints,omitempty"`
}

// Constraint declares one builder applied to a widget.
type Constraint struct {
	Kind     string    `toml:"kind" yaml:"kind" json:"kind"`
	Target   string    `toml:"target" yaml:"target" json:"target,omitempty"`
	Args     []float64 `toml:"args" yaml:"args" json:"args,omitempty"`
	Padding  float64   `toml:"padding" yaml:"padding" json:"padding,omitempty"`
	Strength string    `toml:"strength" yaml:"strength" json:"strength,omitempty"`
}

// Edit suggests a value for one side of a widget.
type Edit struct {
	Widget   string  `toml:"widget" yaml:"widget" json:"widget"`
	Side     string  `toml:"side" yaml:"side" json:"side"`
	Value    float64 `toml:"value" yaml:"value" json:"value"`
	Strength string  `toml:"strength" yaml:"strength" json:"strength,omitempty"`
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Decode reads and validates a scene document. Unknown fields are errors.
func Decode(r io.Reader, format Format) (*Scene, error) {
	var s Scene
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&s)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidScene, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, apperr.New(apperr.ErrCodeInvalidScene, "unknown field %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && err != io.EOF {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidScene, err, "decode yaml")
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidScene, err, "decode json")
		}
	default:
		return nil, apperr.New(apperr.ErrCodeInvalidFormat, "unsupported scene format %q", format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes the scene in the given format.
func (s *Scene) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return apperr.New(apperr.ErrCodeInvalidFormat, "unsupported scene format %q", format)
}

// Canonical returns a format-independent encoding of the scene, suitable
// for hashing. The same scene written in TOML, YAML or JSON yields the same
// bytes.
func (s *Scene) Canonical() []byte {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// Widget returns the declaration of the named widget.
func (s *Scene) Widget(name string) (*Widget, bool) {
	for i := range s.Widgets {
		if s.Widgets[i].Name == name {
			return &s.Widgets[i], true
		}
	}
	return nil, false
}
