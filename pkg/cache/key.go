package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/entrhq/mimic/pkg/security/urlguard"
	"github.com/entrhq/mimic/pkg/types"
)

// keyVersion prefixes every key so a change of derivation never collides
// with keys of an older process.
const keyVersion = "v1"

// Key identifies a cache entry. It depends only on the normalized URL and
// the canonical generation config.
type Key string

// KeyFor derives the key of (rawURL, cfg).
func KeyFor(rawURL string, cfg types.ComponentConfig) (Key, error) {
	normalized, err := urlguard.Normalize(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to normalize url: %w", err)
	}
	sum := sha256.Sum256([]byte(normalized + "\n" + cfg.Canonical()))
	return Key(keyVersion + ":" + hex.EncodeToString(sum[:])), nil
}
