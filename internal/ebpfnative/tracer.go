// Package ebpfnative is the native CO-RE eBPF loader (C12): when BTF and
// CO-RE support are present it attaches a kprobe on tcp_retransmit_skb
// directly via cilium/ebpf instead of shelling out to BCC's tcpretrans.
// Grounded on melisai's internal/ebpf/loader.go (Loader.TryLoad, ProgramSpec)
// and internal/collector/ebpf_tcpretrans.go, adapted from a CLI one-shot
// loader into a reusable Tracer the network tool handlers call per request.
// This is the one component allowed to skip C2: it loads a kernel object
// directly rather than spawning a subprocess, but it is still gated by the
// same capability snapshot and never accepts user-supplied bytecode — the
// object file path is a compile-time constant.
package ebpfnative

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"

	"github.com/perfmcp/perf-mcp/internal/capability"
)

// RetransEvent mirrors the kprobe program's ring buffer record for one
// retransmitted TCP segment.
type RetransEvent struct {
	TimestampNs uint64
	PID         uint32
	Comm        string
	SAddr       string
	DAddr       string
	SPort       uint16
	DPort       uint16
}

// rawRetransEvent is the wire layout the compiled BPF object writes into its
// ringbuf map — 4-byte-aligned, little-endian, matching tcpretrans.o's C
// struct definition.
type rawRetransEvent struct {
	TimestampNs uint64
	SAddr       uint32
	DAddr       uint32
	PID         uint32
	SPort       uint16
	DPort       uint16
	Comm        [16]byte
}

// defaultObjectFile is where the compiled kprobe object is expected to live
// relative to the server's install root.
const defaultObjectFile = "internal/ebpfnative/bpf/tcpretrans.o"

// Tracer loads and attaches the tcp_retransmit_skb kprobe on demand, for the
// duration of a single Trace call, then detaches.
type Tracer struct {
	objectFile string

	mu   sync.Mutex
	coll *ebpf.Collection
	kp   link.Link
	rb   *ringbuf.Reader
}

// NewTracer builds a Tracer for the given compiled object path. An empty
// path uses defaultObjectFile.
func NewTracer(objectFile string) *Tracer {
	if objectFile == "" {
		objectFile = defaultObjectFile
	}
	return &Tracer{objectFile: objectFile}
}

// Available reports whether the host has a realistic chance of supporting
// the native kprobe path.
func Available(caps *capability.Snapshot) bool {
	return caps != nil && caps.BTFAvailable && caps.CORESupport
}

// Trace attaches the kprobe, drains its ring buffer for duration, then
// detaches. Any load/attach failure is returned so callers fall back to the
// BCC tcpretrans path.
func (t *Tracer) Trace(ctx context.Context, duration time.Duration) ([]RetransEvent, error) {
	if err := t.attach(); err != nil {
		return nil, err
	}
	defer t.detach()

	var events []RetransEvent
	deadline := time.Now().Add(duration)
	for {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return events, nil
		}
		readDeadline := remaining
		if readDeadline > 200*time.Millisecond {
			readDeadline = 200 * time.Millisecond
		}
		t.rb.SetDeadline(time.Now().Add(readDeadline))

		record, err := t.rb.Read()
		if err != nil {
			if errors.Is(err, ringbuf.ErrClosed) {
				return events, nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			continue
		}
		ev, err := parseRetransEvent(record.RawSample)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
}

func (t *Tracer) attach() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	spec, err := ebpf.LoadCollectionSpec(t.objectFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", t.objectFile, err)
	}
	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return fmt.Errorf("instantiate collection: %w", err)
	}

	prog, ok := coll.Programs["tcp_retransmit_skb"]
	if !ok {
		for _, p := range coll.Programs {
			prog = p
			break
		}
	}
	if prog == nil {
		coll.Close()
		return fmt.Errorf("no program found in %s", t.objectFile)
	}

	kp, err := link.Kprobe("tcp_retransmit_skb", prog, nil)
	if err != nil {
		coll.Close()
		return fmt.Errorf("attach kprobe: %w", err)
	}

	eventsMap, ok := coll.Maps["events"]
	if !ok {
		kp.Close()
		coll.Close()
		return fmt.Errorf("no events map in %s", t.objectFile)
	}
	rb, err := ringbuf.NewReader(eventsMap)
	if err != nil {
		kp.Close()
		coll.Close()
		return fmt.Errorf("open ringbuf reader: %w", err)
	}

	t.coll = coll
	t.kp = kp
	t.rb = rb
	return nil
}

func (t *Tracer) detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rb != nil {
		t.rb.Close()
		t.rb = nil
	}
	if t.kp != nil {
		t.kp.Close()
		t.kp = nil
	}
	if t.coll != nil {
		t.coll.Close()
		t.coll = nil
	}
}

func parseRetransEvent(raw []byte) (RetransEvent, error) {
	var r rawRetransEvent
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &r); err != nil {
		return RetransEvent{}, err
	}
	return RetransEvent{
		TimestampNs: r.TimestampNs,
		PID:         r.PID,
		Comm:        cString(r.Comm[:]),
		SAddr:       formatIPv4(r.SAddr),
		DAddr:       formatIPv4(r.DAddr),
		SPort:       r.SPort,
		DPort:       r.DPort,
	}, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func formatIPv4(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr), byte(addr>>8), byte(addr>>16), byte(addr>>24))
}
