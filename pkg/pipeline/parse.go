package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/observability"
)

// Parse decodes data in format into an arena graph. source names the input
// in hook events.
func Parse(ctx context.Context, data []byte, format pkgio.Format, source string) (*dag.Graph, error) {
	if len(data) > MaxInputBytes {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input is %d bytes, limit is %d", len(data), MaxInputBytes)
	}

	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, string(format), source)
	start := time.Now()

	g, err := pkgio.Read(ctx, bytes.NewReader(data), format)

	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	hooks.OnParseComplete(ctx, string(format), source, nodes, time.Since(start), err)
	return g, err
}
