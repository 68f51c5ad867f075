package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keySchema is bumped whenever the stored layout encoding changes, which
// orphans every entry written under the old one.
const keySchema = 1

// layoutDigest is the hex SHA-256 behind a layout key. Parallel is left
// out: it only changes how sibling clusters are scheduled, never the
// drawing, so runs at any parallelism share entries.
func layoutDigest(graphHash string, opts LayoutKeyOpts) string {
	opts.Options.Parallel = 0
	data, _ := json.Marshal(struct {
		Schema int           `json:"schema"`
		Graph  string        `json:"graph"`
		Opts   LayoutKeyOpts `json:"opts"`
	}{keySchema, graphHash, opts})
	return Hash(data)
}

// Hash returns the hex SHA-256 of data. Input graphs are hashed on their
// canonical JSON, before the engine adds any virtual node.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
