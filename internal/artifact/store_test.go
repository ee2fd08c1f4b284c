package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutWritesFileAndRef(t *testing.T) {
	s, err := New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ref, err := s.Put("run1", "cpu_profile", "folded", "stacks.txt", []byte("main;foo 5\n"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref.SizeBytes != int64(len("main;foo 5\n")) {
		t.Fatalf("unexpected size: %d", ref.SizeBytes)
	}
	data, err := os.ReadFile(s.Path(ref))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "main;foo 5\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestPutTruncatesOversizedArtifacts(t *testing.T) {
	s, err := New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	big := make([]byte, maxArtifactBytes+100)
	ref, err := s.Put("run1", "cpu_profile", "folded", "big.txt", big)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref.SizeBytes != maxArtifactBytes {
		t.Fatalf("expected truncation to %d, got %d", maxArtifactBytes, ref.SizeBytes)
	}
}

func TestSweepRemovesExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ref, err := s.Put("run1", "cpu_profile", "folded", "stacks.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.mu.Lock()
	entry := s.refs[ref.ID]
	entry.CreatedAt = time.Now().Add(-2 * time.Hour)
	s.refs[ref.ID] = entry
	s.mu.Unlock()

	s.sweep()

	if _, err := os.Stat(filepath.Join(dir, ref.ID)); !os.IsNotExist(err) {
		t.Fatalf("expected artifact directory to be removed, stat err=%v", err)
	}
}
