// Package selftest checks at boot that released heap space reassembles.
//
// Coalescence requests many same-size chunks, releases them all, and then
// requests one block the size of all of them together. That block can only
// be granted if every release merged with its neighbors.
package selftest

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/internal/logger"
)

// Requester is the façade surface the self-test drives. *kheap.Heap satisfies it.
type Requester interface {
	Request(size, align uintptr) (uintptr, error)
	Release(addr, size, align uintptr) error
}

// Phases of a run, as reported in Failure.Phase.
const (
	PhaseRequest    = "request chunks"
	PhaseRelease    = "release chunks"
	PhaseReassemble = "reassemble"
	PhaseCleanup    = "release reassembled block"
)

// ErrBadOptions indicates a run that cannot be performed as configured.
var ErrBadOptions = errors.New("selftest: invalid options")

// Failure reports the phase a run failed in.
type Failure struct {
	Phase string
	Index int // chunk index for the chunk phases, -1 otherwise
	Err   error
}

func (f *Failure) Error() string {
	if f.Index >= 0 {
		return fmt.Sprintf("coalescence self-test failed: %s (chunk %d): %v", f.Phase, f.Index, f.Err)
	}
	return fmt.Sprintf("coalescence self-test failed: %s: %v", f.Phase, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Options configures a run for Run. A zero field takes its value from
// DefaultOptions, so a zero ChunkCount means 14000 chunks, not none.
type Options struct {
	ChunkSize  uintptr // bytes per chunk, 0 for DefaultChunkSize
	ChunkCount int     // chunks to request, 0 for DefaultChunkCount
	Align      uintptr // request alignment, 0 for HeaderAlign
}

// DefaultOptions returns the boot-time configuration: 14000 chunks of 256 bytes.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  format.DefaultChunkSize,
		ChunkCount: format.DefaultChunkCount,
		Align:      format.HeaderAlign,
	}
}

// Result describes a passed run.
type Result struct {
	ChunkSize  uintptr `json:"chunk_size"`
	ChunkCount int     `json:"chunk_count"`
	Total      uintptr `json:"total"` // size of the reassembled request
	Addr       uintptr `json:"addr"`  // where the reassembled block landed
}

// Coalescence runs the self-test with count chunks of chunk bytes. Unlike
// Run it takes no defaults: both must be positive.
func Coalescence(r Requester, chunk uintptr, count int) error {
	if chunk == 0 || count <= 0 {
		return fmt.Errorf("%w: %d chunks of %d bytes", ErrBadOptions, count, chunk)
	}
	_, err := Run(r, Options{ChunkSize: chunk, ChunkCount: count})
	return err
}

// Run performs the self-test. Any failure is returned as a *Failure, apart
// from unusable options which return ErrBadOptions.
func Run(r Requester, opts Options) (*Result, error) {
	def := DefaultOptions()
	if opts.ChunkSize == 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.ChunkCount == 0 {
		opts.ChunkCount = def.ChunkCount
	}
	if opts.Align == 0 {
		opts.Align = def.Align
	}
	if opts.ChunkCount < 0 || !format.IsPowerOfTwo(opts.Align) {
		return nil, fmt.Errorf("%w: count %d align %d", ErrBadOptions, opts.ChunkCount, opts.Align)
	}
	total := opts.ChunkSize * uintptr(opts.ChunkCount)
	if total/uintptr(opts.ChunkCount) != opts.ChunkSize {
		return nil, fmt.Errorf("%w: %d chunks of %d bytes overflow", ErrBadOptions, opts.ChunkCount, opts.ChunkSize)
	}

	chunks := make([]uintptr, 0, opts.ChunkCount)
	for i := range opts.ChunkCount {
		addr, err := r.Request(opts.ChunkSize, opts.Align)
		if err != nil {
			releaseAll(r, chunks, opts)
			return nil, &Failure{Phase: PhaseRequest, Index: i, Err: err}
		}
		chunks = append(chunks, addr)
	}

	for i, addr := range chunks {
		if err := r.Release(addr, opts.ChunkSize, opts.Align); err != nil {
			return nil, &Failure{Phase: PhaseRelease, Index: i, Err: err}
		}
	}

	addr, err := r.Request(total, opts.Align)
	if err != nil {
		return nil, &Failure{Phase: PhaseReassemble, Index: -1, Err: err}
	}
	if err := r.Release(addr, total, opts.Align); err != nil {
		return nil, &Failure{Phase: PhaseCleanup, Index: -1, Err: err}
	}

	logger.Debug("selftest: coalescence passed",
		"chunks", opts.ChunkCount,
		"chunk_size", opts.ChunkSize,
		"total", total,
		"addr", fmt.Sprintf("%#x", addr))

	return &Result{
		ChunkSize:  opts.ChunkSize,
		ChunkCount: opts.ChunkCount,
		Total:      total,
		Addr:       addr,
	}, nil
}

// releaseAll returns chunks obtained before a request failed. Errors are
// ignored: the run has already failed.
func releaseAll(r Requester, chunks []uintptr, opts Options) {
	for _, addr := range chunks {
		_ = r.Release(addr, opts.ChunkSize, opts.Align)
	}
}
