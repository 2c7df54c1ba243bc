package boot

import (
	"fmt"
	"io"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/heap/frame"
	"github.com/joshuapare/kheap/heap/kheap"
	"github.com/joshuapare/kheap/heap/paging"
	"github.com/joshuapare/kheap/heap/selftest"
	"github.com/joshuapare/kheap/internal/logger"
)

// Stage names, in execution order.
const (
	StagePageRange = "computing page range"
	StageMap       = "allocating page range"
	StageInit      = "initializing allocator"
	StageSelfTest  = "testing allocator coalescence"
)

// StageResult records the outcome of one stage.
type StageResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Report describes a bring-up. Fields are filled as stages complete, so a
// failed bring-up still reports how far it got.
type Report struct {
	HeapStart   uintptr          `json:"heap_start"`
	HeapEnd     uintptr          `json:"heap_end"`
	FirstPage   uintptr          `json:"first_page"`
	LastPage    uintptr          `json:"last_page"`
	Pages       int              `json:"pages"`
	PagesMapped int              `json:"pages_mapped"`
	FreeBytes   uintptr          `json:"free_bytes"`
	SelfTest    *selftest.Result `json:"self_test,omitempty"`
	Stages      []StageResult    `json:"stages"`
}

// OK reports whether every stage that ran succeeded.
func (r *Report) OK() bool {
	for _, s := range r.Stages {
		if !s.OK && !s.Skipped {
			return false
		}
	}
	return len(r.Stages) > 0
}

type stageRunner struct {
	console io.Writer
	report  *Report
}

// run executes fn as the named stage and records the outcome.
func (s *stageRunner) run(name string, fn func() error) error {
	fmt.Fprintf(s.console, "    %s...", name)
	if err := fn(); err != nil {
		fmt.Fprintln(s.console, "[failed]")
		s.report.Stages = append(s.report.Stages, StageResult{Name: name, Err: err.Error()})
		logger.Error("boot: stage failed", "stage", name, "error", err)
		return &Error{Stage: name, Err: err}
	}
	fmt.Fprintln(s.console, "[ok]")
	s.report.Stages = append(s.report.Stages, StageResult{Name: name, OK: true})
	logger.Info("boot: stage ok", "stage", name)
	return nil
}

func (s *stageRunner) skip(name string) {
	fmt.Fprintf(s.console, "    %s...[skipped]\n", name)
	s.report.Stages = append(s.report.Stages, StageResult{Name: name, Skipped: true})
	logger.Info("boot: stage skipped", "stage", name)
}

// InitHeap brings up the heap described by cfg over the given collaborators
// and returns the façade. It does not install it.
//
// Every page of the heap range is backed before the allocator sees the
// range. Any failure stops bring-up and is returned as a *Error; the
// returned Report is never nil.
func InitHeap(cfg Config, mapper paging.Mapper, frames frame.Source, mem kheap.Memory) (*kheap.Heap, *Report, error) {
	report := &Report{HeapStart: cfg.HeapStart, HeapEnd: cfg.HeapStart + cfg.HeapSize}
	if err := cfg.validateHeap(); err != nil {
		return nil, report, err
	}
	st := &stageRunner{console: cfg.console(), report: report}

	var pages paging.PageRange
	err := st.run(StagePageRange, func() error {
		pages = paging.PageRangeInclusive(cfg.HeapStart, cfg.HeapStart+cfg.HeapSize-1)
		report.FirstPage = pages.First.Address()
		report.LastPage = pages.Last.Address()
		report.Pages = pages.Len()
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	err = st.run(StageMap, func() error {
		var mapErr error
		pages.Pages(func(p paging.Page) bool {
			f, ok := frames.NextFrame()
			if !ok {
				mapErr = fmt.Errorf("page %#x: %w", p.Address(), ErrFrameExhausted)
				return false
			}
			if mapErr = mapper.Map(p, f, paging.Present|paging.Writable); mapErr != nil {
				return false
			}
			report.PagesMapped++
			return true
		})
		return mapErr
	})
	if err != nil {
		return nil, report, err
	}

	var h *kheap.Heap
	err = st.run(StageInit, func() error {
		a := alloc.New(mem, cfg.Dirty)
		a.Init(cfg.HeapStart, cfg.HeapSize)
		h = kheap.New(a, mem)
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	if cfg.SkipSelfTest {
		st.skip(StageSelfTest)
	} else {
		err = st.run(StageSelfTest, func() error {
			res, err := selftest.Run(h, cfg.SelfTest)
			report.SelfTest = res
			return err
		})
		if err != nil {
			return nil, report, err
		}
	}

	report.FreeBytes = h.FreeBytes()
	return h, report, nil
}

// Boot builds a Machine from cfg and brings the heap up on it. The caller
// owns the machine and must Close it; on error it has already been closed.
func Boot(cfg Config) (*Machine, *kheap.Heap, *Report, error) {
	m, err := NewMachine(cfg)
	if err != nil {
		return nil, nil, &Report{HeapStart: cfg.HeapStart, HeapEnd: cfg.HeapStart + cfg.HeapSize}, err
	}
	if cfg.Dirty == nil {
		cfg.Dirty = m.Dirty
	}

	h, report, err := InitHeap(cfg, m.Table, m.Frames, m.Memory)
	if err != nil {
		_ = m.Close()
		return nil, nil, report, err
	}
	return m, h, report, nil
}
