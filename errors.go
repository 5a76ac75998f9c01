package extsort

import (
	"errors"

	"github.com/hupe1980/extsort/internal/compress"
	"github.com/hupe1980/extsort/internal/disk"
)

var (
	// ErrCompression indicates a codec failed while compressing a page.
	// Fatal for the channel being written; no partial-page recovery.
	ErrCompression = compress.ErrCompression

	// ErrDecompression indicates a codec failed while decompressing a page.
	ErrDecompression = compress.ErrDecompression

	// ErrCorruptBlock indicates a block header declares lengths inconsistent
	// with the bytes actually present. Always fatal.
	ErrCorruptBlock = compress.ErrCorruptBlock

	// ErrChannelIO indicates an error of the underlying temp storage. It is
	// not retried here; retry policy belongs to the storage provider.
	ErrChannelIO = disk.ErrChannelIO

	// ErrMerge wraps any failure that aborts an in-flight merge, including
	// serializer faults. The session's channel cleanup still runs.
	ErrMerge = errors.New("merge failed")

	// ErrClosed is returned when records are written to or merged by a
	// session that has been closed or already sorted.
	ErrClosed = errors.New("sort session closed")
)
