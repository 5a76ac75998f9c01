package extsort

import (
	"container/heap"
	"fmt"
	"io"

	"github.com/hupe1980/extsort/internal/disk"
)

// Run is an opaque handle to one spilled sorted run. A run is backed by
// exactly one channel and owned by the session that produced it; passing it
// to Merge transfers ownership of the channel to the merge.
type Run struct {
	id disk.ChannelID
}

// RunReader enumerates the records of a sorted run in non-decreasing order
// under the session comparator.
type RunReader[R any] interface {
	// Next returns the next record or io.EOF after the last one. The
	// returned record is only valid until the following call to Next.
	Next() (R, error)

	// Close releases the channels still backing the reader. Reading a run to
	// completion closes it implicitly; Close is then a no-op.
	Close() error
}

// memoryRunReader serves a run that never left the in-memory sort buffer.
type memoryRunReader[R any] struct {
	recs []R
	pos  int
}

func (r *memoryRunReader[R]) Next() (R, error) {
	if r.pos == len(r.recs) {
		var zero R
		return zero, io.EOF
	}
	rec := r.recs[r.pos]
	r.pos++
	return rec, nil
}

func (r *memoryRunReader[R]) Close() error { return nil }

// mergeStream is one channel-backed run inside a k-way merge, holding the
// single decoded record resident for that run.
type mergeStream[R any] struct {
	id  disk.ChannelID
	in  *disk.InputView
	rec R
}

// mergeHeap is a min-heap of streams keyed by the comparator.
type mergeHeap[R any] struct {
	streams []*mergeStream[R]
	cmp     func(a, b R) int
}

func (h *mergeHeap[R]) Len() int { return len(h.streams) }

func (h *mergeHeap[R]) Less(i, j int) bool {
	return h.cmp(h.streams[i].rec, h.streams[j].rec) < 0
}

func (h *mergeHeap[R]) Swap(i, j int) {
	h.streams[i], h.streams[j] = h.streams[j], h.streams[i]
}

func (h *mergeHeap[R]) Push(x any) {
	h.streams = append(h.streams, x.(*mergeStream[R]))
}

func (h *mergeHeap[R]) Pop() any {
	old := h.streams
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	h.streams = old[:n-1]
	return s
}

// heapRunReader merges up to maxFanIn channel-backed runs on the fly. Each
// pop emits the minimum resident record and refills from the same run; an
// exhausted run's channel is closed and deleted immediately.
type heapRunReader[R any] struct {
	m       *Merger[R]
	h       *mergeHeap[R]
	started bool
	closed  bool
}

func (m *Merger[R]) newHeapReader(ids []disk.ChannelID) (*heapRunReader[R], error) {
	h := &mergeHeap[R]{cmp: m.ser.Compare}

	for _, id := range ids {
		in, err := m.mgr.OpenInput(id, m.channelPageSize, m.compression)
		if err != nil {
			closeStreams(h.streams)
			return nil, err
		}

		rec, err := m.ser.Deserialize(m.ser.CreateInstance(), in)
		if err == io.EOF {
			// Empty run; release it right away.
			in.Close() //nolint:errcheck,gosec // read side, nothing to lose
			m.mgr.CloseAndDelete(id)
			continue
		}
		if err != nil {
			in.Close() //nolint:errcheck,gosec // already failing
			closeStreams(h.streams)
			return nil, fmt.Errorf("deserialize record: %w", err)
		}
		h.streams = append(h.streams, &mergeStream[R]{id: id, in: in, rec: rec})
	}

	heap.Init(h)
	return &heapRunReader[R]{m: m, h: h}, nil
}

func closeStreams[R any](streams []*mergeStream[R]) {
	for _, s := range streams {
		s.in.Close() //nolint:errcheck,gosec // cleanup path
	}
}

func (r *heapRunReader[R]) Next() (R, error) {
	var zero R
	if r.closed {
		return zero, io.EOF
	}

	if !r.started {
		r.started = true
	} else if err := r.advance(); err != nil {
		return zero, err
	}

	if r.h.Len() == 0 {
		r.Close() //nolint:errcheck,gosec // nothing left to release
		return zero, io.EOF
	}
	return r.h.streams[0].rec, nil
}

// advance refills the winning stream with its next record, or retires the
// stream when its run is exhausted.
func (r *heapRunReader[R]) advance() error {
	s := r.h.streams[0]

	rec, err := r.m.ser.Deserialize(s.rec, s.in)
	if err == io.EOF {
		heap.Pop(r.h)
		s.in.Close() //nolint:errcheck,gosec // run fully consumed
		r.m.mgr.CloseAndDelete(s.id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: deserialize record: %w", ErrMerge, err)
	}

	s.rec = rec
	heap.Fix(r.h, 0)
	return nil
}

func (r *heapRunReader[R]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	for _, s := range r.h.streams {
		s.in.Close() //nolint:errcheck,gosec // cleanup path
		r.m.mgr.CloseAndDelete(s.id)
	}
	r.h.streams = nil
	return nil
}
