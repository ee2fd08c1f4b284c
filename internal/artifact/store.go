// Package artifact is the TTL'd artifact store (C13): optional folded-stack
// or flamegraph files written by profiler-class tools, referenced from an
// envelope by an ArtifactRef rather than inlined into the response. Grounded
// on the scoped-temp-dir pattern implicit in melisai's
// internal/output/flamegraph.go (--flamegraph writes under a fixed base
// directory) and made explicit with a uuid-keyed per-artifact file plus a
// background TTL sweep (spec §6).
package artifact

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxArtifactBytes = 10 * 1024 * 1024 // spec §6: max 10MB each

// Ref describes one stored artifact (spec §6).
type Ref struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Tool        string    `json:"tool"`
	Type        string    `json:"type"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
	SizeBytes   int64     `json:"size_bytes"`
	TTLSeconds  int64     `json:"ttl_seconds"`
}

// Store persists artifacts under baseDir/<uuid> and sweeps expired ones.
type Store struct {
	baseDir string
	ttl     time.Duration

	mu    sync.Mutex
	refs  map[string]Ref
	stopC chan struct{}
}

// New creates a Store rooted at baseDir, creating it if necessary. A zero
// ttl falls back to the spec's 1-hour default.
func New(baseDir string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, err
	}
	return &Store{baseDir: baseDir, ttl: ttl, refs: map[string]Ref{}}, nil
}

// Put writes data as a new artifact and returns its Ref. Content beyond
// maxArtifactBytes is truncated rather than rejected, matching the server's
// general truncate-don't-fail posture for output caps.
func (s *Store) Put(runID, tool, typ, filename string, data []byte) (Ref, error) {
	if int64(len(data)) > maxArtifactBytes {
		data = data[:maxArtifactBytes]
	}
	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Ref{}, err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Ref{}, err
	}
	ref := Ref{
		ID:         id,
		RunID:      runID,
		Tool:       tool,
		Type:       typ,
		Filename:   filename,
		CreatedAt:  time.Now(),
		SizeBytes:  int64(len(data)),
		TTLSeconds: int64(s.ttl.Seconds()),
	}
	s.mu.Lock()
	s.refs[id] = ref
	s.mu.Unlock()
	return ref, nil
}

// Path returns the on-disk path for an artifact, or "" if unknown.
func (s *Store) Path(ref Ref) string {
	return filepath.Join(s.baseDir, ref.ID, ref.Filename)
}

// StartSweeper launches a background goroutine that removes expired
// artifacts every interval until Stop is called.
func (s *Store) StartSweeper(interval time.Duration) {
	s.mu.Lock()
	if s.stopC != nil {
		s.mu.Unlock()
		return
	}
	s.stopC = make(chan struct{})
	stop := s.stopC
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends the background sweeper, if running.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopC != nil {
		close(s.stopC)
		s.stopC = nil
	}
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	var expired []string
	for id, ref := range s.refs {
		if now.Sub(ref.CreatedAt) > time.Duration(ref.TTLSeconds)*time.Second {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.refs, id)
	}
	s.mu.Unlock()

	for _, id := range expired {
		os.RemoveAll(filepath.Join(s.baseDir, id))
	}
}
