package idhash

import (
	"context"
	"regexp"
	"testing"
	"time"
)

var runIDPattern = regexp.MustCompile(`^ab_\d{8}T\d{6}Z_[0-9a-f]{8}$`)

func TestNewRunID_Format(t *testing.T) {
	now := time.Date(2024, 10, 6, 17, 4, 5, 0, time.FixedZone("EST", -5*3600))
	id := NewRunID(now)

	if !runIDPattern.MatchString(id) {
		t.Fatalf("run id %q does not match %s", id, runIDPattern)
	}
	if id[:19] != "ab_20241006T220405Z" {
		t.Errorf("run id should embed the UTC timestamp, got %q", id)
	}
}

func TestNewRunID_Unique(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewRunID(now)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate run id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestParseRunTime(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	got, ok := ParseRunTime(NewRunID(now))
	if !ok {
		t.Fatal("expected run time to parse")
	}
	if !got.Equal(now) {
		t.Errorf("ParseRunTime = %v, want %v", got, now)
	}

	for _, bad := range []string{"", "ab_", "run_20241231T235958Z_abcd1234", "ab_2024-12-31_abcd1234"} {
		if _, ok := ParseRunTime(bad); ok {
			t.Errorf("ParseRunTime(%q) should fail", bad)
		}
	}
}

func TestComputeConfigHash_KeyOrderIndependent(t *testing.T) {
	type ordered struct {
		B int    `json:"b"`
		A string `json:"a"`
	}
	h1, err := ComputeConfigHash(ordered{B: 1, A: "x"})
	if err != nil {
		t.Fatalf("ComputeConfigHash failed: %v", err)
	}
	h2, err := ComputeConfigHash(map[string]any{"a": "x", "b": 1})
	if err != nil {
		t.Fatalf("ComputeConfigHash failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash depends on key order: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
}

func TestComputeConfigHash_DifferentInputs(t *testing.T) {
	base, _ := ComputeConfigHash(map[string]any{"seeds": 7, "simulations": 5000})
	diff, _ := ComputeConfigHash(map[string]any{"seeds": 8, "simulations": 5000})
	if base == diff {
		t.Error("different configs should produce different hashes")
	}
}

func TestCanonicalJSON_Nested(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"z": map[string]any{"b": 2, "a": 1},
		"a": []int{3, 1},
	})
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	want := `{"a":[3,1],"z":{"a":1,"b":2}}`
	if string(got) != want {
		t.Errorf("CanonicalJSON = %s, want %s", got, want)
	}
}

func TestComputeConfigHash_Unmarshalable(t *testing.T) {
	if _, err := ComputeConfigHash(map[string]any{"f": func() {}}); err == nil {
		t.Error("expected error for unmarshalable config")
	}
}

func TestGitRevision_NotARepository(t *testing.T) {
	if got := GitRevision(context.Background(), t.TempDir()); got != UnknownRevision {
		t.Errorf("GitRevision outside a work tree = %q, want %q", got, UnknownRevision)
	}
}
