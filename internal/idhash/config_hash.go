package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ComputeConfigHash computes a deterministic fingerprint of a configuration.
// Formula: SHA256(canonical JSON), where canonical JSON has object keys sorted
// at every level. Returns hex-encoded hash (64 characters).
func ComputeConfigHash(cfg any) (string, error) {
	canonical, err := CanonicalJSON(cfg)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}

// CanonicalJSON encodes v with sorted object keys.
// Struct field order does not leak into the output.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	return json.Marshal(generic)
}
