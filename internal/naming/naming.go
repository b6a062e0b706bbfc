// Package naming derives physical cloud and Kubernetes names from logical
// declaration names and validates them against the target API rules.
package naming

import (
	"crypto/sha1"
	"fmt"
)

// suffixLength defines the hex length of autoname suffixes (bits ~ length * 4).
const suffixLength = 7

// ShortHash returns the hex SHA1 prefix of length n (clamped to digest size).
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := fmt.Sprintf("%x", sum)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

// Autoname returns "<logical>-<hash>" where hash is derived from seed
// (usually the declaration URN). The logical part is truncated so the result
// fits in maxLen while the suffix is always preserved.
func Autoname(logical, seed string, maxLen int) string {
	suffix := ShortHash(seed, suffixLength)
	allow := maxLen - len(suffix) - 1
	if allow < 1 {
		return suffix[:min(len(suffix), maxLen)]
	}
	if len(logical) > allow {
		logical = logical[:allow]
	}
	return logical + "-" + suffix
}
