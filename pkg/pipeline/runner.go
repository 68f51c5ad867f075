package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/cache"
	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/observability"
)

const keyTypeLayout = "layout"

// Runner executes the pipeline against a cache. It holds no per-run state,
// so one Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is the lifetime of stored layouts; zero means cache.TTLLayout.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses DefaultKeyer.
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

// Execute runs parse → layout → export on input.
func (r *Runner) Execute(ctx context.Context, input []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	parseStart := time.Now()
	g, err := Parse(ctx, input, opts.InputFormat, opts.Source)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	opts.Logger.Info("parsed graph",
		"source", opts.Source,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.ParseTime)

	layoutStart := time.Now()
	l, hash, hit, err := r.layoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.GraphHash = hash
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = hit

	opts.Logger.Info("computed layout",
		"width", l.Width,
		"height", l.Height,
		"crossings", l.Stats.Crossings,
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exportStart := time.Now()
	out, err := Export(ctx, l, opts.OutputFormat)
	if err != nil {
		return nil, err
	}
	result.Output = out
	result.Stats.ExportTime = time.Since(exportStart)

	opts.Logger.Debug("exported layout",
		"format", opts.OutputFormat,
		"bytes", len(out),
		"duration", result.Stats.ExportTime)

	return result, nil
}

// ExecuteFile reads path and runs the pipeline on it. The input format is
// detected from the extension unless opts sets one.
func (r *Runner) ExecuteFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if opts.InputFormat == "" {
		f, err := pkgio.DetectFormat(path)
		if err != nil {
			return nil, err
		}
		opts.InputFormat = f
	}
	if opts.Source == "" {
		opts.Source = path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "graph file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return r.Execute(ctx, data, opts)
}

// GenerateLayoutWithCacheInfo lays out g, serving the result from the cache
// when an identical request was seen before. The bool reports a cache hit.
func (r *Runner) GenerateLayoutWithCacheInfo(ctx context.Context, g *dag.Graph, opts Options) (graph.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return graph.Layout{}, false, err
	}
	l, _, hit, err := r.layoutWithCacheInfo(ctx, g, opts)
	return l, hit, err
}

// GenerateLayout is GenerateLayoutWithCacheInfo without the hit flag.
func (r *Runner) GenerateLayout(ctx context.Context, g *dag.Graph, opts Options) (graph.Layout, error) {
	l, _, err := r.GenerateLayoutWithCacheInfo(ctx, g, opts)
	return l, err
}

func (r *Runner) layoutWithCacheInfo(ctx context.Context, g *dag.Graph, opts Options) (graph.Layout, string, bool, error) {
	// The graph is hashed before the engine adds virtual nodes to it.
	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return graph.Layout{}, "", false, errors.Wrap(errors.ErrCodeInternal, err, "serialize graph for cache key")
	}
	graphHash := cache.Hash(graphData)

	lopts, err := ResolveLayoutOptions(g, opts.Layout)
	if err != nil {
		return graph.Layout{}, graphHash, false, err
	}
	if lopts.Logger == nil {
		lopts.Logger = opts.Logger
	}
	cacheKey := r.Keyer.LayoutKey(graphHash, LayoutKeyOpts(lopts))
	hooks := observability.Cache()

	if !opts.NoCache && !opts.Refresh {
		if l, ok := r.lookup(ctx, cacheKey); ok {
			hooks.OnCacheHit(ctx, keyTypeLayout)
			return l, graphHash, true, nil
		}
		hooks.OnCacheMiss(ctx, keyTypeLayout)
	}

	l, err := GenerateLayout(ctx, g, lopts)
	if err != nil {
		return graph.Layout{}, graphHash, false, err
	}

	if !opts.NoCache {
		r.store(ctx, cacheKey, l)
	}
	return l, graphHash, false, nil
}

// lookup reads a cached layout. Backend errors and undecodable entries are
// treated as misses.
func (r *Runner) lookup(ctx context.Context, key string) (graph.Layout, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return graph.Layout{}, false
	}
	if !hit {
		return graph.Layout{}, false
	}
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		r.Logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		_ = r.Cache.Delete(ctx, key)
		return graph.Layout{}, false
	}
	return l, true
}

func (r *Runner) store(ctx context.Context, key string, l graph.Layout) {
	data, err := graph.MarshalLayout(l)
	if err != nil {
		r.Logger.Warn("cache encode failed", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl()); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
}

// Engines lists the registered layout engines.
func (r *Runner) Engines() []string {
	return layout.Engines()
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLLayout
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
