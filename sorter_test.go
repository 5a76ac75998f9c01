package extsort

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/extsort/testutil"
)

func sortKeys(t *testing.T, keys []uint64, optFns ...Option) []uint64 {
	t.Helper()

	s, err := NewSorter[uint64](u64Serializer{}, optFns...)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck // test cleanup

	for _, k := range keys {
		require.NoError(t, s.Write(k))
	}
	rdr, err := s.Sort()
	require.NoError(t, err)
	return drainU64(t, rdr)
}

func TestSorterInMemory(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(1)
	keys := rng.Uint64s(100)

	s, err := NewSorter[uint64](u64Serializer{}, WithTempDir(dir))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck // test cleanup

	for _, k := range keys {
		require.NoError(t, s.Write(k))
	}
	rdr, err := s.Sort()
	require.NoError(t, err)

	got := drainU64(t, rdr)
	want := append([]uint64(nil), keys...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, got)

	// Below the spill threshold nothing touches disk.
	_, statErr := os.Stat(s.merger.mgr.Dir())
	assert.True(t, os.IsNotExist(statErr))
}

func TestSorterSpillsAndMerges(t *testing.T) {
	const numKeys = 10000

	metrics := &BasicMetricsCollector{}
	rng := testutil.NewRNG(2)
	keys := rng.Uint64s(numKeys)

	got := sortKeys(t, keys,
		WithSpillThreshold(512),
		WithMaxFanIn(4),
		WithPageSize(512),
		WithCompressionBlockSize(512),
		WithTempDir(t.TempDir()),
		WithMetricsCollector(metrics),
	)

	require.Len(t, got, numKeys)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i])
	}

	stats := metrics.GetStats()
	assert.GreaterOrEqual(t, stats.SpillCount, int64(numKeys/512))
	assert.GreaterOrEqual(t, stats.MergeRoundCount, int64(2))
	assert.Equal(t, int64(1), stats.MergeCount)
}

func TestSorterCompressionCodecs(t *testing.T) {
	rng := testutil.NewRNG(3)
	keys := rng.Uint64s(3000)
	want := append([]uint64(nil), keys...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	for _, codec := range []string{"none", "lz4", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			got := sortKeys(t, keys,
				WithSpillThreshold(256),
				WithCompression(codec),
				WithPageSize(256),
				WithCompressionBlockSize(256),
				WithTempDir(t.TempDir()),
			)
			assert.Equal(t, want, got)
		})
	}
}

func TestSorterRecordsLargerThanPage(t *testing.T) {
	const pageSize = 256

	s, err := NewSorter[[]byte](blobSerializer{},
		WithSpillThreshold(16),
		WithPageSize(pageSize),
		WithCompressionBlockSize(pageSize),
		WithTempDir(t.TempDir()),
	)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck // test cleanup

	rng := testutil.NewRNG(4)
	var want [][]byte
	for i := 0; i < 100; i++ {
		// Records spanning multiple pages.
		blob := rng.Bytes(200 + rng.Intn(1800))
		want = append(want, blob)
		require.NoError(t, s.Write(blob))
	}
	sort.Slice(want, func(i, j int) bool { return bytes.Compare(want[i], want[j]) < 0 })

	rdr, err := s.Sort()
	require.NoError(t, err)

	var got [][]byte
	for {
		rec, err := rdr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, append([]byte(nil), rec...)) // rec is reused; copy
	}
	require.NoError(t, rdr.Close())

	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, bytes.Equal(want[i], got[i]))
	}
}

func TestSorterDuplicateKeys(t *testing.T) {
	keys := make([]uint64, 0, 3000)
	rng := testutil.NewRNG(6)
	for i := 0; i < 3000; i++ {
		keys = append(keys, uint64(rng.Intn(10))) // heavy duplication
	}

	got := sortKeys(t, keys,
		WithSpillThreshold(100),
		WithMaxFanIn(3),
		WithPageSize(64),
		WithCompressionBlockSize(64),
		WithTempDir(t.TempDir()),
	)

	require.Len(t, got, len(keys))
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i])
	}
}

func TestSorterSealedAndClosed(t *testing.T) {
	s, err := NewSorter[uint64](u64Serializer{}, WithTempDir(t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, s.Write(1))
	_, err = s.Sort()
	require.NoError(t, err)

	assert.ErrorIs(t, s.Write(2), ErrClosed)
	_, err = s.Sort()
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write(3), ErrClosed)
}

func TestSorterCloseReclaimsChannels(t *testing.T) {
	s, err := NewSorter[uint64](u64Serializer{},
		WithSpillThreshold(100),
		WithTempDir(t.TempDir()),
	)
	require.NoError(t, err)

	rng := testutil.NewRNG(8)
	for _, k := range rng.Uint64s(1000) {
		require.NoError(t, s.Write(k))
	}
	require.Greater(t, s.merger.channelCount(), 0)

	// Cancel without sorting: every spilled channel must be reclaimed.
	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.merger.channelCount())
	_, statErr := os.Stat(s.merger.mgr.Dir())
	assert.True(t, os.IsNotExist(statErr))
}

func TestSorterCloseDuringWrites(t *testing.T) {
	s, err := NewSorter[uint64](u64Serializer{},
		WithSpillThreshold(64),
		WithPageSize(64),
		WithCompressionBlockSize(64),
		WithTempDir(t.TempDir()),
	)
	require.NoError(t, err)

	started := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		close(started)
		rng := testutil.NewRNG(9)
		for i := 0; i < 100000; i++ {
			if err := s.Write(rng.Uint64()); err != nil {
				// A spill racing the cancellation loses its directory and
				// reports channel I/O instead of ErrClosed.
				if errors.Is(err, ErrClosed) || errors.Is(err, ErrChannelIO) {
					return nil
				}
				return err
			}
		}
		return nil
	})

	// Cancel the session mid-stream from another goroutine.
	<-started
	require.NoError(t, s.Close())
	require.NoError(t, g.Wait())

	assert.ErrorIs(t, s.Write(1), ErrClosed)

	// A spill racing the cancellation may register one last channel; the
	// idempotent Close reclaims it.
	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.merger.channelCount())
}

func TestSorterConcurrentSessions(t *testing.T) {
	var g errgroup.Group

	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			rng := testutil.NewRNG(int64(100 + i))
			keys := rng.Uint64s(5000)

			s, err := NewSorter[uint64](u64Serializer{},
				WithSpillThreshold(500),
				WithMaxFanIn(4),
				WithPageSize(256),
				WithCompressionBlockSize(256),
				WithTempDir(t.TempDir()),
			)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck // test cleanup

			for _, k := range keys {
				if err := s.Write(k); err != nil {
					return err
				}
			}
			rdr, err := s.Sort()
			if err != nil {
				return err
			}
			defer rdr.Close() //nolint:errcheck // test cleanup

			var prev uint64
			count := 0
			for {
				rec, err := rdr.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				if count > 0 && rec < prev {
					t.Errorf("session %d: out of order at %d", i, count)
				}
				prev = rec
				count++
			}
			if count != len(keys) {
				t.Errorf("session %d: got %d records, want %d", i, count, len(keys))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
