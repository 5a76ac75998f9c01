package extsort

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/extsort/internal/compress"
	"github.com/hupe1980/extsort/internal/disk"
)

const (
	// DefaultMaxFanIn is the default maximum number of runs merged in one pass.
	DefaultMaxFanIn = 128
	// DefaultPageSize is the default logical page size of spill channels.
	DefaultPageSize = 32 * 1024
	// DefaultCompressionBlockSize is the default page size used when
	// compression is enabled.
	DefaultCompressionBlockSize = 64 * 1024
	// DefaultSpillThreshold is the default number of buffered records that
	// triggers a spill.
	DefaultSpillThreshold = 64 * 1024

	minMaxFanIn = 2
	minPageSize = 64
)

type options struct {
	maxFanIn             int
	pageSize             int
	compression          string
	compressionBlockSize int
	spillThreshold       int
	tempDir              string
	fs                   disk.FileSystem
	logger               *Logger
	metrics              MetricsCollector
}

// Option configures a sort session.
type Option func(*options)

// WithMaxFanIn bounds how many runs are merged together in one pass. Larger
// values mean fewer rounds but more concurrently open channels and one
// resident decoded record per open run.
func WithMaxFanIn(n int) Option {
	return func(o *options) {
		o.maxFanIn = n
	}
}

// WithPageSize sets the logical page size of spill channels.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithCompression selects the spill compression codec by identifier:
// "none", "lz4" (default) or "zstd".
func WithCompression(codec string) Option {
	return func(o *options) {
		o.compression = codec
	}
}

// WithCompressionBlockSize sets the page size used when compression is
// enabled; one logical page becomes one compressed block. Meaningless when
// compression is disabled.
func WithCompressionBlockSize(n int) Option {
	return func(o *options) {
		o.compressionBlockSize = n
	}
}

// WithSpillThreshold sets the number of buffered records after which the
// sorter spills a sorted run to disk.
func WithSpillThreshold(n int) Option {
	return func(o *options) {
		o.spillThreshold = n
	}
}

// WithTempDir sets the directory under which the session creates its unique
// spill directory. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// withFileSystem injects a FileSystem, used by tests for fault injection.
func withFileSystem(fsys disk.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithLogger configures structured logging for the session.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for the session.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) (options, compress.Type, error) {
	o := options{
		maxFanIn:             DefaultMaxFanIn,
		pageSize:             DefaultPageSize,
		compression:          "lz4",
		compressionBlockSize: DefaultCompressionBlockSize,
		spillThreshold:       DefaultSpillThreshold,
		fs:                   disk.Default,
		logger:               NoopLogger(),
		metrics:              NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.maxFanIn < minMaxFanIn {
		return o, compress.None, fmt.Errorf("max fan-in must be at least %d, got %d", minMaxFanIn, o.maxFanIn)
	}
	if o.pageSize < minPageSize {
		return o, compress.None, fmt.Errorf("page size must be at least %d, got %d", minPageSize, o.pageSize)
	}
	if o.compressionBlockSize < minPageSize {
		return o, compress.None, fmt.Errorf("compression block size must be at least %d, got %d", minPageSize, o.compressionBlockSize)
	}
	if o.spillThreshold < 1 {
		return o, compress.None, fmt.Errorf("spill threshold must be positive, got %d", o.spillThreshold)
	}

	typ, err := compress.ParseType(o.compression)
	if err != nil {
		return o, compress.None, err
	}
	return o, typ, nil
}
