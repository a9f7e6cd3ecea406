package version

import "testing"

func TestString(t *testing.T) {
	if got := String(); got != Version {
		t.Errorf("String() = %q, want %q without build metadata", got, Version)
	}

	Version, GitCommit, BuildTime = "v1.2.3", "abc123", "2026-01-02"
	t.Cleanup(func() { Version, GitCommit, BuildTime = "unknown", "unknown", "unknown" })

	want := "v1.2.3 (commit abc123, built 2026-01-02)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
