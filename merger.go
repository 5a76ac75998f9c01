package extsort

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hupe1980/extsort/internal/compress"
	"github.com/hupe1980/extsort/internal/disk"
)

// Merger is the external k-way merge engine of one sort session. It spills
// sorted runs to managed channels and merges channel-backed runs, bounded by
// the maximum fan-in, recursively merging in rounds when the run count
// exceeds it.
//
// A Merger is driven by exactly one goroutine at a time; independent sessions
// may run concurrently with no shared state.
type Merger[R any] struct {
	ser             Serializer[R]
	mgr             *disk.Manager
	maxFanIn        int
	channelPageSize int
	compression     compress.Type
	logger          *Logger
	metrics         MetricsCollector
	closed          atomic.Bool
}

// NewMerger creates a merge session. Close must be called to reclaim any
// remaining spill channels, regardless of how the merge ended.
func NewMerger[R any](ser Serializer[R], optFns ...Option) (*Merger[R], error) {
	o, typ, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	// With compression enabled the compression block is the physical page of
	// the channel; one logical page becomes one framed block.
	channelPageSize := o.pageSize
	if typ != compress.None {
		channelPageSize = o.compressionBlockSize
	}

	mgr := disk.NewManager(o.fs, o.tempDir, o.logger.Logger)
	return &Merger[R]{
		ser:             ser,
		mgr:             mgr,
		maxFanIn:        o.maxFanIn,
		channelPageSize: channelPageSize,
		compression:     typ,
		logger:          o.logger.WithSession(mgr.Dir()),
		metrics:         o.metrics,
	}, nil
}

// Spill sorts records and writes them as one run to a fresh spill channel.
// The records slice is sorted in place.
func (m *Merger[R]) Spill(records []R) (*Run, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	sort.Slice(records, func(i, j int) bool {
		return m.ser.Compare(records[i], records[j]) < 0
	})

	id, err := m.mgr.CreateChannel()
	if err != nil {
		m.metrics.RecordSpill(len(records), 0, time.Since(start), err)
		return nil, err
	}
	out, err := m.mgr.OpenOutput(id, m.channelPageSize, m.compression)
	if err != nil {
		m.mgr.CloseAndDelete(id)
		m.metrics.RecordSpill(len(records), 0, time.Since(start), err)
		return nil, err
	}

	for _, rec := range records {
		if err := m.ser.Serialize(rec, out); err != nil {
			out.Close() //nolint:errcheck,gosec // already failing
			m.mgr.CloseAndDelete(id)
			err = fmt.Errorf("serialize record: %w", err)
			m.metrics.RecordSpill(len(records), 0, time.Since(start), err)
			m.logger.LogSpill(len(records), 0, err)
			return nil, err
		}
	}
	if err := out.Close(); err != nil {
		m.mgr.CloseAndDelete(id)
		m.metrics.RecordSpill(len(records), 0, time.Since(start), err)
		m.logger.LogSpill(len(records), 0, err)
		return nil, err
	}

	m.metrics.RecordSpill(len(records), out.BytesWritten(), time.Since(start), nil)
	m.logger.LogSpill(len(records), out.BytesWritten(), nil)
	return &Run{id: id}, nil
}

// Merge consumes the given sorted runs and returns one reader over all their
// records in sorted order. While more runs remain than the maximum fan-in,
// batches of runs are merged into new spilled runs, deleting each consumed
// batch immediately; the final merge streams directly to the returned reader
// with no further spilling.
//
// Ownership of the runs transfers to the merge: they are invalid afterwards,
// whether it succeeded or not.
func (m *Merger[R]) Merge(runs ...*Run) (RunReader[R], error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	ids := make([]disk.ChannelID, 0, len(runs))
	for _, r := range runs {
		if r != nil {
			ids = append(ids, r.id)
		}
	}
	totalRuns := len(ids)

	rounds := 0
	for len(ids) > m.maxFanIn {
		rounds++
		roundStart := time.Now()

		batch := ids[:m.maxFanIn]
		newID, err := m.mergeToChannel(batch)
		m.metrics.RecordMergeRound(len(batch), time.Since(roundStart), err)
		m.logger.LogMergeRound(rounds, len(batch), err)
		if err != nil {
			// Errors surfacing from a merge reader already carry ErrMerge.
			if errors.Is(err, ErrMerge) {
				err = fmt.Errorf("round %d: %w", rounds, err)
			} else {
				err = fmt.Errorf("%w: round %d: %w", ErrMerge, rounds, err)
			}
			m.metrics.RecordMerge(totalRuns, rounds, time.Since(start), err)
			m.logger.LogMerge(totalRuns, rounds, err)
			return nil, err
		}
		ids = append(ids[m.maxFanIn:], newID)
	}

	var rdr RunReader[R]
	if len(ids) == 0 {
		rdr = &memoryRunReader[R]{}
	} else {
		hr, err := m.newHeapReader(ids)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrMerge, err)
			m.metrics.RecordMerge(totalRuns, rounds, time.Since(start), err)
			m.logger.LogMerge(totalRuns, rounds, err)
			return nil, err
		}
		rdr = hr
	}

	m.metrics.RecordMerge(totalRuns, rounds, time.Since(start), nil)
	m.logger.LogMerge(totalRuns, rounds, nil)
	return rdr, nil
}

// mergeToChannel k-way merges one batch of runs into a new spilled run and
// deletes the consumed channels.
func (m *Merger[R]) mergeToChannel(ids []disk.ChannelID) (disk.ChannelID, error) {
	rdr, err := m.newHeapReader(ids)
	if err != nil {
		return "", err
	}
	defer rdr.Close() //nolint:errcheck // releases the batch on every exit path

	outID, err := m.mgr.CreateChannel()
	if err != nil {
		return "", err
	}
	out, err := m.mgr.OpenOutput(outID, m.channelPageSize, m.compression)
	if err != nil {
		m.mgr.CloseAndDelete(outID)
		return "", err
	}

	for {
		rec, err := rdr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close() //nolint:errcheck,gosec // already failing
			m.mgr.CloseAndDelete(outID)
			return "", err
		}
		if err := m.ser.Serialize(rec, out); err != nil {
			out.Close() //nolint:errcheck,gosec // already failing
			m.mgr.CloseAndDelete(outID)
			return "", fmt.Errorf("serialize record: %w", err)
		}
	}

	if err := out.Close(); err != nil {
		m.mgr.CloseAndDelete(outID)
		return "", err
	}
	return outID, nil
}

// Close tears the session down, deleting every spill channel that is still
// registered. Idempotent and safe to call from a goroutine other than the
// one driving the merge, as coarse-grained cancellation.
func (m *Merger[R]) Close() error {
	m.closed.Store(true)
	m.mgr.CloseAll()
	return nil
}

// channelCount reports the number of live spill channels, for tests.
func (m *Merger[R]) channelCount() int {
	return m.mgr.Count()
}
