package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/stratum/pkg/buildinfo"
	"github.com/matzehuels/stratum/pkg/cache"
	"github.com/matzehuels/stratum/pkg/errors"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/pipeline"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

const (
	headerScope     = "X-Stratum-Scope"
	headerCache     = "X-Stratum-Cache"
	headerRunID     = "X-Stratum-Run-Id"
	headerGraphHash = "X-Stratum-Graph-Hash"

	mimeDOT = "text/vnd.graphviz"
)

var scopePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var contentTypes = map[pkgio.Format]string{
	pkgio.FormatJSON: "application/json",
	pkgio.FormatDOT:  mimeDOT,
	pkgio.FormatSVG:  "image/svg+xml",
}

// handleLayout runs the pipeline on the request body.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", s.maxBody))
			return
		}
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}

	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	runner, err := s.scopedRunner(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := runner.Execute(r.Context(), body, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	status := "miss"
	if res.CacheInfo.LayoutHit {
		status = "hit"
	}
	h := w.Header()
	h.Set("Content-Type", contentTypes[opts.OutputFormat])
	h.Set(headerCache, status)
	h.Set(headerRunID, res.Layout.Stats.RunID)
	h.Set(headerGraphHash, res.GraphHash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Output)
}

// requestOptions builds pipeline options from the query string and headers.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Source: "request",
		Layout: s.defaults,
	}
	opts.Layout.Logger = nil

	in := q.Get("format")
	if in == "" {
		in = string(pkgio.FormatJSON)
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == mimeDOT {
			in = string(pkgio.FormatDOT)
		}
	}
	f, err := pkgio.ParseFormat(in)
	if err != nil {
		return opts, err
	}
	opts.InputFormat = f

	if out := q.Get("output"); out != "" {
		if opts.OutputFormat, err = pkgio.ParseFormat(out); err != nil {
			return opts, err
		}
	}
	opts.NoCache, err = queryBool(q, "no_cache")
	if err != nil {
		return opts, err
	}
	if err := applyLayoutQuery(q, &opts.Layout); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyLayoutQuery overrides layout options with query parameters.
func applyLayoutQuery(q url.Values, o *layout.Options) error {
	if v := q.Get("engine"); v != "" {
		o.Engine = v
	}
	if v := q.Get("rankdir"); v != "" {
		o.RankDir = position.RankDir(strings.ToUpper(v))
	}
	if v := q.Get("ranking"); v != "" {
		o.Ranking = rank.Mode(v)
	}
	if v := q.Get("positioning"); v != "" {
		o.Positioning = position.Strategy(v)
	}
	if v := q.Get("splines"); v != "" {
		o.Splines = spline.Mode(v)
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"ranksep", &o.RankSep},
		{"nodesep", &o.NodeSep},
	} {
		if v := q.Get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.New(errors.ErrCodeInvalidConfig, "%s %q is not a number", p.name, v)
			}
			*p.dst = f
		}
	}
	if v := q.Get("parallel"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "parallel %q is not an integer", v)
		}
		o.Parallel = n
	}
	return nil
}

func queryBool(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidConfig, "%s %q is not a boolean", name, v)
	}
	return b, nil
}

// scopedRunner returns the shared runner, or a copy whose cache keys are
// namespaced by the request's scope header.
func (s *Server) scopedRunner(r *http.Request) (*pipeline.Runner, error) {
	scope := r.Header.Get(headerScope)
	if scope == "" {
		return s.runner, nil
	}
	if !scopePattern.MatchString(scope) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %q must match %s", headerScope, scope, scopePattern)
	}
	scoped := *s.runner
	scoped.Keyer = cache.NewScopedKeyer(s.runner.Keyer, "scope:"+scope+":")
	return &scoped, nil
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": layout.DefaultEngine,
		"engines": s.runner.Engines(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
