// Package cache stores finished layouts keyed by input content and options.
//
// A layout is a pure function of the input graph, the layout options and
// the engine version, so [DefaultKeyer] hashes exactly those three. Entries
// hold the JSON of a [graph.Layout].
//
// Backends:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under a local directory
//   - [RedisCache]: shared cache for `stratum serve` deployments
//
// [graph.Layout]: github.com/matzehuels/stratum/pkg/graph.Layout
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/stratum/pkg/layout"
)

// TTLLayout is how long a cached layout stays valid.
const TTLLayout = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer derives cache keys.
type Keyer interface {
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// LayoutKeyOpts is everything besides the graph that determines a layout.
// Options should be validated first so that defaults are filled in and
// equivalent requests share a key.
type LayoutKeyOpts struct {
	Version string         `json:"version"`
	Options layout.Options `json:"options"`
}

// DefaultKeyer builds unprefixed keys of the form "layout:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey hashes the graph hash together with opts.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return "layout:" + layoutDigest(graphHash, opts)
}
