// Package config loads stratum's configuration file.
//
// A configuration file sets layout parameters and the ambient settings of
// the CLI and server (cache backend, listen address, log level). TOML, YAML
// and JSON are accepted; the format follows the file extension:
//
//	[layout]
//	rankdir = "LR"
//	ranksep = 48
//	positioning = "priority"
//
//	[cache]
//	redis_url = "redis://localhost:6379/0"
//	ttl = "24h"
//
// Layout values left unset fall back to the graph's own attributes and then
// to the engine defaults, so a configuration only needs the keys it changes.
// Environment variables (see [EnvRedisURL] and friends) override the file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

// Environment variables that override file values.
const (
	EnvRedisURL = "STRATUM_REDIS_URL"
	EnvCacheDir = "STRATUM_CACHE_DIR"
	EnvLogLevel = "STRATUM_LOG_LEVEL"
	EnvAddr     = "STRATUM_ADDR"
)

// Defaults for the ambient settings.
const (
	DefaultAddr         = ":8080"
	DefaultCachePrefix  = "stratum:"
	DefaultCacheTTL     = "168h"
	DefaultLogLevel     = "info"
	DefaultMaxBodyBytes = 10 << 20
	DefaultTimeout      = "30s"
)

// Config is the root of a configuration file.
type Config struct {
	Layout LayoutConfig `toml:"layout" yaml:"layout" json:"layout"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache" json:"cache"`
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`
	Log    LogConfig    `toml:"log" yaml:"log" json:"log"`
}

// LayoutConfig mirrors [layout.Options]. Zero values mean "not set".
type LayoutConfig struct {
	Engine  string  `toml:"engine" yaml:"engine" json:"engine,omitempty" validate:"omitempty,oneof=dot neato fdp circo twopi"`
	RankDir string  `toml:"rankdir" yaml:"rankdir" json:"rankdir,omitempty" validate:"omitempty,oneof=TB LR BT RL tb lr bt rl"`
	RankSep float64 `toml:"ranksep" yaml:"ranksep" json:"ranksep,omitempty" validate:"gte=0,lte=1000000"`
	NodeSep float64 `toml:"nodesep" yaml:"nodesep" json:"nodesep,omitempty" validate:"gte=0,lte=1000000"`

	Ranking     string `toml:"ranking" yaml:"ranking" json:"ranking,omitempty" validate:"omitempty,oneof=simplex longest-path"`
	RankMaxIter int    `toml:"rank_max_iter" yaml:"rank_max_iter" json:"rank_max_iter,omitempty" validate:"gte=0"`
	NoBalance   bool   `toml:"no_balance" yaml:"no_balance" json:"no_balance,omitempty"`

	OrderMaxIter int `toml:"order_max_iter" yaml:"order_max_iter" json:"order_max_iter,omitempty" validate:"gte=0"`
	OrderMinQuit int `toml:"order_min_quit" yaml:"order_min_quit" json:"order_min_quit,omitempty" validate:"gte=0"`

	Positioning        string `toml:"positioning" yaml:"positioning" json:"positioning,omitempty" validate:"omitempty,oneof=simplex priority"`
	PositionMaxIter    int    `toml:"position_max_iter" yaml:"position_max_iter" json:"position_max_iter,omitempty" validate:"gte=0"`
	PriorityIterations int    `toml:"priority_iterations" yaml:"priority_iterations" json:"priority_iterations,omitempty" validate:"gte=0"`

	Splines   string  `toml:"splines" yaml:"splines" json:"splines,omitempty" validate:"omitempty,oneof=spline polyline line none"`
	ArrowSize float64 `toml:"arrow_size" yaml:"arrow_size" json:"arrow_size,omitempty" validate:"gte=0,lte=1000000"`
	MultiSep  float64 `toml:"multisep" yaml:"multisep" json:"multisep,omitempty" validate:"gte=0,lte=1000000"`
	LoopSize  float64 `toml:"loop_size" yaml:"loop_size" json:"loop_size,omitempty" validate:"gte=0,lte=1000000"`

	Parallel int `toml:"parallel" yaml:"parallel" json:"parallel,omitempty" validate:"gte=0,lte=256"`
}

// CacheConfig selects the layout cache backend. RedisURL wins over Dir.
type CacheConfig struct {
	Disabled bool   `toml:"disabled" yaml:"disabled" json:"disabled,omitempty"`
	Dir      string `toml:"dir" yaml:"dir" json:"dir,omitempty"`
	RedisURL string `toml:"redis_url" yaml:"redis_url" json:"redis_url,omitempty" validate:"omitempty,url"`
	Prefix   string `toml:"prefix" yaml:"prefix" json:"prefix,omitempty" validate:"max=64"`
	TTL      string `toml:"ttl" yaml:"ttl" json:"ttl,omitempty" validate:"omitempty,duration"`
}

// ServerConfig configures `stratum serve`.
type ServerConfig struct {
	Addr         string `toml:"addr" yaml:"addr" json:"addr" validate:"required,hostname_port"`
	MaxBodyBytes int64  `toml:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes" validate:"gt=0"`
	Timeout      string `toml:"timeout" yaml:"timeout" json:"timeout" validate:"omitempty,duration"`
}

// LogConfig sets the logger's level.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Prefix: DefaultCachePrefix,
			TTL:    DefaultCacheTTL,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
			Timeout:      DefaultTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load reads the file at path on top of [Default], applies environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeNotFound, err, "config file %s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults in place.
		if err := dec.Decode(c); err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (want .toml, .yaml or .json)", ext)
	}
	return nil
}

// ApplyEnv overrides file values with the STRATUM_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRedisURL); ok {
		c.Cache.RedisURL = v
	}
	if v, ok := lookup(EnvCacheDir); ok {
		c.Cache.Dir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvAddr); ok {
		c.Server.Addr = v
	}
}

// LayoutOptions converts the layout section to engine options. The result
// is not yet validated; fields left zero take graph attributes or defaults.
func (c *Config) LayoutOptions() layout.Options {
	l := c.Layout
	return layout.Options{
		Engine:             l.Engine,
		RankDir:            position.RankDir(strings.ToUpper(l.RankDir)),
		RankSep:            l.RankSep,
		NodeSep:            l.NodeSep,
		Ranking:            rank.Mode(l.Ranking),
		RankMaxIter:        l.RankMaxIter,
		NoBalance:          l.NoBalance,
		OrderMaxIter:       l.OrderMaxIter,
		OrderMinQuit:       l.OrderMinQuit,
		Positioning:        position.Strategy(l.Positioning),
		PositionMaxIter:    l.PositionMaxIter,
		PriorityIterations: l.PriorityIterations,
		Splines:            spline.Mode(l.Splines),
		ArrowSize:          l.ArrowSize,
		MultiSep:           l.MultiSep,
		LoopSize:           l.LoopSize,
		Parallel:           l.Parallel,
	}
}

// CacheTTL returns the parsed cache TTL, or 0 when unset.
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// ServerTimeout returns the parsed per-request timeout, or 0 when unset.
func (c *Config) ServerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.Timeout)
	return d
}

// LogLevel returns the configured level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
