package reader

import "testing"

func TestReadFileRejectedByPolicy(t *testing.T) {
	r := New(func(string) bool { return false }, 0)
	res := r.ReadFile("/proc/stat")
	if res.Success {
		t.Fatal("expected policy rejection to fail the read")
	}
	if res.Content != "" {
		t.Error("expected no content on a rejected read")
	}
}

func TestReadFileMissingFile(t *testing.T) {
	r := New(func(string) bool { return true }, 0)
	res := r.ReadFile("/proc/this-path-does-not-exist-xyz")
	if res.Success {
		t.Fatal("expected missing file to fail")
	}
}

func TestReadFileHonorsCap(t *testing.T) {
	r := New(func(string) bool { return true }, 4)
	res := r.ReadFile("/proc/version")
	if !res.Success {
		t.Skip("/proc/version not readable in this environment")
	}
	if len(res.Content) > 4 {
		t.Errorf("expected content capped at 4 bytes, got %d", len(res.Content))
	}
}
