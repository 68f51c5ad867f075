package pipeline

import (
	"bytes"
	"context"

	"github.com/matzehuels/stratum/pkg/graph"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/observability"
)

// Export encodes l in format.
func Export(ctx context.Context, l graph.Layout, format pkgio.Format) ([]byte, error) {
	var buf bytes.Buffer
	err := pkgio.Write(&buf, l, format)
	observability.Pipeline().OnExportComplete(ctx, string(format), buf.Len(), err)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
