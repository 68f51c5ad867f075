package io

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
)

// Format names a serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
)

// ParseFormat validates a format name. "gv" is accepted as DOT.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatDOT, FormatSVG:
		return f, nil
	case "gv":
		return FormatDOT, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want json, dot or svg)", s)
}

// DetectFormat derives the format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot detect format of %q: no extension", path)
	}
	return ParseFormat(ext)
}

// Read decodes an input graph in the given format. SVG is output only.
func Read(ctx context.Context, r io.Reader, format Format) (*dag.Graph, error) {
	switch format {
	case FormatJSON:
		return graph.ReadGraph(r)
	case FormatDOT:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read DOT")
		}
		return ReadDOT(ctx, data)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "format %q cannot be read", format)
}

// ReadFile reads an input graph, detecting the format from the extension.
func ReadFile(ctx context.Context, path string) (*dag.Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "graph file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return Read(ctx, bytes.NewReader(data), format)
}
