package buildinfo

import "testing"

func TestShort(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	Version, Commit = "dev", "unknown"
	if got := Short(); got != "dev" {
		t.Fatalf("Short() = %q, want dev", got)
	}
	Commit = "abc123"
	if got := Short(); got != "abc123" {
		t.Fatalf("Short() = %q, want commit", got)
	}
	Version = "v0.3.0"
	if got := Short(); got != "v0.3.0" {
		t.Fatalf("Short() = %q, want version", got)
	}
}

func TestString(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v1", "c", "today"
	if got := String(); got != "v1 (commit c, built today)" {
		t.Fatalf("String() = %q", got)
	}
}
