// Package memory tracks Arrow buffer allocations made during a run.
package memory

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Stats is a snapshot of a TrackingAllocator.
type Stats struct {
	Current     int64 `json:"current_bytes"` // bytes allocated and not yet freed
	Peak        int64 `json:"peak_bytes"`
	Total       int64 `json:"total_bytes"` // cumulative bytes allocated
	Allocations int64 `json:"allocations"`
}

// TrackingAllocator wraps an Arrow allocator and records allocation and
// deallocation sizes. It is safe for concurrent use.
type TrackingAllocator struct {
	mem         memory.Allocator
	current     atomic.Int64
	peak        atomic.Int64
	total       atomic.Int64
	allocations atomic.Int64
}

var _ memory.Allocator = (*TrackingAllocator)(nil)

// NewTrackingAllocator wraps mem, or a Go allocator when mem is nil.
func NewTrackingAllocator(mem memory.Allocator) *TrackingAllocator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &TrackingAllocator{mem: mem}
}

// Allocate implements memory.Allocator.
func (a *TrackingAllocator) Allocate(size int) []byte {
	b := a.mem.Allocate(size)
	a.allocations.Add(1)
	a.total.Add(int64(len(b)))
	a.grow(int64(len(b)))
	return b
}

// Reallocate implements memory.Allocator.
func (a *TrackingAllocator) Reallocate(size int, b []byte) []byte {
	old := len(b)
	nb := a.mem.Reallocate(size, b)
	if delta := int64(len(nb) - old); delta > 0 {
		a.total.Add(delta)
		a.grow(delta)
	} else {
		a.current.Add(delta)
	}
	return nb
}

// Free implements memory.Allocator.
func (a *TrackingAllocator) Free(b []byte) {
	size := len(b)
	a.mem.Free(b)
	a.current.Add(-int64(size))
}

// grow adds delta to the live byte count and raises the peak if needed.
func (a *TrackingAllocator) grow(delta int64) {
	now := a.current.Add(delta)
	for {
		peak := a.peak.Load()
		if now <= peak || a.peak.CompareAndSwap(peak, now) {
			return
		}
	}
}

// Stats returns the current counters.
func (a *TrackingAllocator) Stats() Stats {
	return Stats{
		Current:     a.current.Load(),
		Peak:        a.peak.Load(),
		Total:       a.total.Load(),
		Allocations: a.allocations.Load(),
	}
}
