package extsort

import "sort"

// Sorter sorts a stream of records that may not fit in memory. Records are
// buffered until the spill threshold is reached, then written out as sorted
// runs; Sort merges all runs into one globally sorted stream.
//
// A Sorter is single-threaded: exactly one goroutine drives Write and Sort.
// Close may be called from another goroutine to cancel the session.
type Sorter[R any] struct {
	merger    *Merger[R]
	ser       Serializer[R]
	threshold int
	buf       []R
	runs      []*Run
	sealed    bool
}

// NewSorter creates a sort session. Close must be called when the session
// ends, whether Sort succeeded or not.
func NewSorter[R any](ser Serializer[R], optFns ...Option) (*Sorter[R], error) {
	o, _, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	merger, err := NewMerger(ser, optFns...)
	if err != nil {
		return nil, err
	}
	return &Sorter[R]{
		merger:    merger,
		ser:       ser,
		threshold: o.spillThreshold,
		buf:       make([]R, 0, min(o.spillThreshold, 1024)),
	}, nil
}

// Write adds one record to the session, spilling a sorted run when the
// in-memory buffer overflows the threshold.
func (s *Sorter[R]) Write(rec R) error {
	if s.sealed || s.merger.closed.Load() {
		return ErrClosed
	}

	s.buf = append(s.buf, rec)
	if len(s.buf) >= s.threshold {
		return s.spill()
	}
	return nil
}

func (s *Sorter[R]) spill() error {
	if len(s.buf) == 0 {
		return nil
	}
	run, err := s.merger.Spill(s.buf)
	if err != nil {
		return err
	}
	s.runs = append(s.runs, run)
	s.buf = s.buf[:0]
	return nil
}

// Sort seals the session and returns a reader over all written records in
// sorted order. When nothing was spilled the records are served straight
// from memory without touching disk.
func (s *Sorter[R]) Sort() (RunReader[R], error) {
	if s.sealed || s.merger.closed.Load() {
		return nil, ErrClosed
	}
	s.sealed = true

	if len(s.runs) == 0 {
		sort.Slice(s.buf, func(i, j int) bool {
			return s.ser.Compare(s.buf[i], s.buf[j]) < 0
		})
		return &memoryRunReader[R]{recs: s.buf}, nil
	}

	if err := s.spill(); err != nil {
		return nil, err
	}
	runs := s.runs
	s.runs = nil
	return s.merger.Merge(runs...)
}

// Close cancels the session and deletes every remaining spill channel.
// Readers returned by Sort become invalid. Idempotent.
func (s *Sorter[R]) Close() error {
	return s.merger.Close()
}
