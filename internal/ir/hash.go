package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for checksums. The version suffix leaves room for a
// future algorithm change without colliding with stored values.
const (
	DomainSnapshot = "readtrack/snapshot/v1"
	DomainRecord   = "readtrack/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotChecksum hashes a persisted buffer.
// Valid JSON is canonicalized first so that checksums ignore key order and
// whitespace; anything else is hashed byte for byte.
func SnapshotChecksum(buf []byte) string {
	if canonical, err := CanonicalizeJSON(buf); err == nil {
		return hashWithDomain(DomainSnapshot, canonical)
	}
	return hashWithDomain(DomainSnapshot, buf)
}

// ValueChecksum hashes the canonical form of a host value.
func ValueChecksum(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("value checksum: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}
