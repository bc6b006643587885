package values

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Digest is a SHA-256 content checksum of a plugin file or directory.
// Catalog entries store it as bare lowercase hex in their "hash" field.
type Digest struct {
	value string
}

// NewDigest wraps a hex checksum. An optional "sha256:" prefix is accepted.
func NewDigest(hexValue string) (Digest, error) {
	v := strings.ToLower(strings.TrimPrefix(hexValue, "sha256:"))
	if len(v) != sha256.Size*2 {
		return Digest{}, fmt.Errorf("invalid digest length %d: %q", len(v), hexValue)
	}
	if _, err := hex.DecodeString(v); err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", hexValue, err)
	}
	return Digest{value: v}, nil
}

// ComputeDigest computes the SHA-256 digest of reader contents.
func ComputeDigest(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{value: hex.EncodeToString(h.Sum(nil))}, nil
}

// DigestBytes computes the SHA-256 digest of data.
func DigestBytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{value: hex.EncodeToString(sum[:])}
}

// Hex returns the bare hex form stored in catalogs.
func (d Digest) Hex() string {
	return d.value
}

// String returns the algorithm-qualified form.
func (d Digest) String() string {
	return "sha256:" + d.value
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d.value == ""
}

// Matches compares against a stored hash, ignoring case and an algorithm prefix.
func (d Digest) Matches(stored string) bool {
	if d.value == "" || stored == "" {
		return false
	}
	return d.value == strings.ToLower(strings.TrimPrefix(stored, "sha256:"))
}
