package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies a transform request for caching and dedup.
// Hash is the sha256 of the input text, so raw text never appears in keys.
type Fingerprint struct {
	Mode  string
	Style string
	Hash  string
}

// String converts the structured key into the final string used in Redis/map.
func (f Fingerprint) String() string {
	// <MODE>:<STYLE>:<HASH_HEX>
	return f.Mode + ":" + f.Style + ":" + f.Hash
}

// BuildFingerprint hashes text and combines it with mode and style.
func BuildFingerprint(mode, style, text string) Fingerprint {
	sum := sha256.Sum256([]byte(text))
	return Fingerprint{
		Mode:  mode,
		Style: style,
		Hash:  hex.EncodeToString(sum[:]),
	}
}

// parseFingerprint reverses String. Style may itself contain ':'.
func parseFingerprint(key string) (Fingerprint, bool) {
	first := strings.Index(key, ":")
	last := strings.LastIndex(key, ":")
	if first < 0 || first == last {
		return Fingerprint{}, false
	}
	return Fingerprint{
		Mode:  key[:first],
		Style: key[first+1 : last],
		Hash:  key[last+1:],
	}, true
}

// Cache is the interface used by the transform handler.
// Implemented by memory cache (default) and Redis cache (shared).
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, output string) error
}
