// Package reader is the safe file reader (C3): it opens a path only after
// allowlist.PathReadable clears it, and never leaks the refused absolute
// path back to a caller.
package reader

import (
	"io"
	"os"
)

// Result is what ReadFile returns; Content is empty when Success is false.
type Result struct {
	Content string
	Success bool
}

const defaultCap = 4 * 1024 * 1024 // 4 MiB, generous for any single procfs/sysfs file

// PathPolicy is satisfied by allowlist.PathReadable; accepted as an
// interface so tests can inject an alternate policy.
type PathPolicy func(path string) bool

// Reader reads files gated by a PathPolicy and a byte cap.
type Reader struct {
	policy  PathPolicy
	maxSize int64
}

// New creates a Reader with the given path policy and byte cap. A zero cap
// falls back to defaultCap.
func New(policy PathPolicy, maxSize int64) *Reader {
	if maxSize <= 0 {
		maxSize = defaultCap
	}
	return &Reader{policy: policy, maxSize: maxSize}
}

// ReadFile implements I5: paths rejected by the policy never reach open(2).
func (r *Reader) ReadFile(path string) Result {
	if !r.policy(path) {
		return Result{Success: false}
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{Success: false}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxSize))
	if err != nil {
		return Result{Success: false}
	}
	return Result{Content: string(data), Success: true}
}
