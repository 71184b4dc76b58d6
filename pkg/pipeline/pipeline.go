// Package pipeline solves scenes and renders their outputs, with caching.
//
// The CLI and the HTTP server both go through this package, so a scene is
// built, solved and rendered the same way regardless of the entry point.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Solve: build the widget tree from a scene, apply extra edits and
//     collect the solved bounds and a solver snapshot
//  2. Render: produce artifacts (result JSON, snapshot JSON, DOT, SVG,
//     PNG, PDF) from the solved state
//
// Both stages consult the cache. Keys derive from the scene's canonical
// hash and the hash of the extra edits, so the same scene written in TOML
// or YAML hits the same entries.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, sc, pipeline.Options{
//	    Formats: []string{pipeline.FormatJSON, pipeline.FormatSVG},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := res.Artifacts[pipeline.FormatSVG]
//
// A scene whose constraints conflict still solves; [Result.Conflict] holds
// the conflict and nothing is cached.
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/limn/pkg/cache"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/tree"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatSnapshot = "snapshot"
	FormatDOT      = "dot"
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
)

// DefaultScale is the PNG scale used when none is given.
const DefaultScale = 2.0

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:     true,
	FormatSnapshot: true,
	FormatDOT:      true,
	FormatSVG:      true,
	FormatPNG:      true,
	FormatPDF:      true,
}

// Options configures a pipeline run.
type Options struct {
	// Edits are applied after the scene's own edits.
	Edits []scene.Edit `json:"edits,omitempty"`

	// Formats lists the artifacts to render. Empty means json only.
	Formats []string `json:"formats,omitempty"`
	// Detailed labels constraint graph edges with whole constraints.
	Detailed bool `json:"detailed,omitempty"`
	// Scale is the PNG scale factor.
	Scale float64 `json:"scale,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// SceneHash is the content hash of the scene.
	SceneHash string

	// Layout holds the solved bounds of every widget.
	Layout *limnio.Result

	// Snapshot is the solver state after solving.
	Snapshot *layout.Snapshot

	// Tree is the solved tree. It is nil when the solve stage hit the cache.
	Tree *tree.Tree

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Conflict is set when required constraints of the scene conflict.
	Conflict error

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Widgets     int
	Constraints int
	SolveTime   time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SolveHit  bool // Whether the solved layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: %s)", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < 0 {
		return fmt.Errorf("invalid scale: %v", o.Scale)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// EditsHash is the hash of the extra edits, or "" when there are none.
func (o *Options) EditsHash() string {
	if len(o.Edits) == 0 {
		return ""
	}
	data, _ := json.Marshal(o.Edits)
	return cache.Hash(data)
}

// ResultKeyOpts returns cache key options for one artifact format.
func (o *Options) ResultKeyOpts(format string) cache.ResultKeyOpts {
	return cache.ResultKeyOpts{Stage: cache.StageArtifact, Format: format, Edits: o.EditsHash()}
}

// LayoutKeyOpts returns cache key options for the solved layout.
func (o *Options) LayoutKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{Stage: cache.StageLayout, Edits: o.EditsHash()}
}

// snapshotHash identifies the solved state of a scene plus extra edits.
func (o *Options) snapshotHash(sceneHash string) string {
	if e := o.EditsHash(); e != "" {
		return cache.Hash([]byte(sceneHash + ":" + e))
	}
	return sceneHash
}
