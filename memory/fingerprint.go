package memory

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strings"
)

// Fingerprint computes the deterministic identity of a memory from its
// content and metadata: a hex-encoded SHA-256 digest (64 characters).
//
// Normalization policy: leading and trailing whitespace is trimmed and
// internal whitespace runs collapse to a single space; casing is preserved.
// Two contents that differ only in normalized-away whitespace collapse to
// the same identity and deduplicate against each other.
//
// The digest input is a sequence of length-prefixed fields: the normalized
// content, then each metadata key and value in ascending key order. The
// length prefixes make the encoding injective, so no choice of content
// bytes can masquerade as a metadata pair or vice versa.
func Fingerprint(content string, metadata map[string]string) string {
	h := sha256.New()
	writeField(h, normalizeContent(content))

	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField(h, k)
			writeField(h, metadata[k])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func normalizeContent(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
