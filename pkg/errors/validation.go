package errors

import (
	"math"
	"strings"
	"unicode"
)

// Numeric limits accepted from input graphs. Values beyond these would let
// weighted sums in the network simplex solver or coordinate arithmetic leave
// the exactly-representable range.
const (
	MaxWeight    = 1_000_000
	MaxMinlen    = 10_000
	MaxNodeSize  = 1_000_000.0
	MaxCoord     = 1e9
	maxIDLength  = 1024
	maxPathChars = 4096
)

// ValidateID validates a node, edge or cluster identifier from input.
//
// The rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 1024 bytes
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "%s id too long (max %d characters)", kind, maxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id %q contains control characters", kind, id)
		}
	}
	return nil
}

// ValidateWeight rejects negative or oversized edge weights.
func ValidateWeight(w int) error {
	if w < 0 {
		return New(ErrCodeInvalidTopology, "negative edge weight %d", w)
	}
	if w > MaxWeight {
		return New(ErrCodeNumericOverflow, "edge weight %d exceeds limit %d", w, MaxWeight)
	}
	return nil
}

// ValidateMinlen rejects negative or oversized minimum edge lengths.
func ValidateMinlen(m int) error {
	if m < 0 {
		return New(ErrCodeInvalidTopology, "negative edge minlen %d", m)
	}
	if m > MaxMinlen {
		return New(ErrCodeNumericOverflow, "edge minlen %d exceeds limit %d", m, MaxMinlen)
	}
	return nil
}

// ValidateSize rejects node dimensions that are negative, NaN, infinite or
// larger than MaxNodeSize.
func ValidateSize(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeNumericOverflow, "%s is not finite", what)
	}
	if v < 0 {
		return New(ErrCodeInvalidTopology, "%s is negative (%g)", what, v)
	}
	if v > MaxNodeSize {
		return New(ErrCodeNumericOverflow, "%s %g exceeds limit %g", what, v, MaxNodeSize)
	}
	return nil
}

// ValidateCoord reports a NUMERIC_OVERFLOW error for a coordinate outside
// [-MaxCoord, MaxCoord].
func ValidateCoord(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCoord {
		return New(ErrCodeNumericOverflow, "%s coordinate %g out of range", what, v)
	}
	return nil
}

// ValidatePath validates an input or output file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}
	if len(path) > maxPathChars {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathChars)
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateRedisURL checks that rawURL uses the redis or rediss scheme.
func ValidateRedisURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "redis URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeInvalidConfig, "redis URL must use redis or rediss scheme")
	}
	return nil
}
