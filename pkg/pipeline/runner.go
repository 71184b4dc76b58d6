package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/limn/pkg/cache"
	apperr "github.com/matzehuels/limn/pkg/errors"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/tree"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can use the same Runner with different scenes.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the solve → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, sc *scene.Scene, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	solveStart := time.Now()
	res, err := r.Solve(ctx, sc, opts)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	res.Stats.SolveTime = time.Since(solveStart)
	r.Logger.Info("solved scene",
		"scene", sc.Name,
		"widgets", res.Stats.Widgets,
		"constraints", res.Stats.Constraints,
		"cached", res.CacheInfo.SolveHit,
		"duration", res.Stats.SolveTime)
	if res.Conflict != nil {
		r.Logger.Warn("scene has conflicting constraints", "scene", sc.Name, "err", res.Conflict)
	}

	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, res, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	res.Artifacts = artifacts
	res.CacheInfo.RenderHit = hit
	res.Stats.RenderTime = time.Since(renderStart)
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", res.Stats.RenderTime)
	return res, nil
}

// Solve builds and solves the scene, or loads the solved layout and
// snapshot from the cache. Artifacts are not rendered.
func (r *Runner) Solve(ctx context.Context, sc *scene.Scene, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	for i, e := range opts.Edits {
		if _, ok := sc.Widget(e.Widget); !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "edit %d: unknown widget %q", i, e.Widget)
		}
	}

	hash := cache.Hash(sc.Canonical())
	resultKey := r.Keyer.ResultKey(hash, opts.LayoutKeyOpts())
	snapshotKey := r.Keyer.SnapshotKey(opts.snapshotHash(hash))

	if !opts.Refresh {
		if res, ok := r.loadSolved(ctx, resultKey, snapshotKey); ok {
			res.SceneHash = hash
			return res, nil
		}
	}

	t, conflict := sc.Build(tree.WithLogger(opts.Logger))
	if conflict != nil && !apperr.Is(conflict, apperr.ErrCodeConstraintConflict) {
		return nil, conflict
	}
	if len(opts.Edits) > 0 {
		if _, err := scene.Apply(t, opts.Edits); err != nil {
			if apperr.GetCode(err) != "" {
				return nil, err
			}
			conflict = errors.Join(conflict, err)
		}
	}

	snap, err := t.Solver().Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	layout := limnio.NewResult(t)
	layout.Scene = hash

	res := &Result{
		SceneHash: hash,
		Layout:    layout,
		Snapshot:  snap,
		Tree:      t,
		Conflict:  conflict,
	}
	res.Stats.Widgets = len(layout.Widgets)
	res.Stats.Constraints = len(snap.Constraints)

	if conflict == nil {
		r.store(ctx, resultKey, snapshotKey, res)
	}
	return res, nil
}

// loadSolved reads a cached layout and snapshot. Entries that fail to
// decode count as misses.
func (r *Runner) loadSolved(ctx context.Context, resultKey, snapshotKey string) (*Result, bool) {
	resData, hit, err := r.Cache.Get(ctx, resultKey)
	if err != nil || !hit {
		return nil, false
	}
	snapData, hit, err := r.Cache.Get(ctx, snapshotKey)
	if err != nil || !hit {
		return nil, false
	}
	layout, err := limnio.ReadResult(bytes.NewReader(resData))
	if err != nil {
		r.Logger.Debug("discarding cached result", "err", err)
		return nil, false
	}
	snap, err := limnio.ReadSnapshot(bytes.NewReader(snapData))
	if err != nil {
		r.Logger.Debug("discarding cached snapshot", "err", err)
		return nil, false
	}
	res := &Result{Layout: layout, Snapshot: snap}
	res.Stats.Widgets = len(layout.Widgets)
	res.Stats.Constraints = len(snap.Constraints)
	res.CacheInfo.SolveHit = true
	return res, true
}

func (r *Runner) store(ctx context.Context, resultKey, snapshotKey string, res *Result) {
	if data, err := limnio.MarshalResult(res.Layout); err == nil {
		if err := r.Cache.Set(ctx, resultKey, data, cache.TTLResult); err != nil {
			r.Logger.Debug("cache write failed", "key", resultKey, "err", err)
		}
	}
	var buf bytes.Buffer
	if err := limnio.WriteSnapshot(res.Snapshot, &buf); err == nil {
		if err := r.Cache.Set(ctx, snapshotKey, buf.Bytes(), cache.TTLSnapshot); err != nil {
			r.Logger.Debug("cache write failed", "key", snapshotKey, "err", err)
		}
	}
}

// RenderWithCacheInfo renders the requested artifacts, reading and writing
// each format through the cache. It reports whether every artifact came
// from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	cacheable := res.Conflict == nil

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if cacheable && !opts.Refresh {
			key := r.Keyer.ResultKey(res.SceneHash, opts.ResultKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				artifacts[format] = data
				continue
			}
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	sub := opts
	sub.Formats = missing
	rendered, err := Render(ctx, res.Layout, res.Snapshot, sub)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if cacheable {
			key := r.Keyer.ResultKey(res.SceneHash, opts.ResultKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
				r.Logger.Debug("cache write failed", "format", format, "err", err)
			}
		}
	}
	return artifacts, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
