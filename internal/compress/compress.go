package compress

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCompression indicates a codec failed while compressing a block.
	ErrCompression = errors.New("block compression failed")
	// ErrDecompression indicates a codec failed while decompressing a block.
	ErrDecompression = errors.New("block decompression failed")
	// ErrCorruptBlock indicates the block header declares lengths that are
	// inconsistent with the available bytes. Always fatal for the channel.
	ErrCorruptBlock = errors.New("corrupt block")
)

// Type identifies a block compression algorithm.
type Type uint8

const (
	// None stores pages with framing intact but no compression.
	None Type = iota
	// LZ4 uses LZ4 block compression (fast, moderate ratio).
	LZ4
	// ZSTD uses zstd block compression (better ratio, more CPU).
	ZSTD
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType maps a codec identifier from configuration to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown compression codec %q", s)
	}
}

// Compressor compresses byte ranges into framed blocks.
//
// Implementations are not safe for concurrent use; each view owns its own
// compressor.
type Compressor interface {
	// MaxCompressedSize returns an upper bound (not required tight) on the
	// framed output size for n input bytes. Callers size dst with it.
	MaxCompressedSize(n int) int

	// Compress writes header plus payload into dst and returns the total
	// number of bytes written. dst must be at least MaxCompressedSize(len(src))
	// bytes long.
	Compress(src, dst []byte) (int, error)
}

// Decompressor decompresses framed blocks produced by the matching Compressor.
type Decompressor interface {
	// Decompress reads the header from src, validates the declared lengths
	// against len(src) and len(dst), and writes the original bytes into dst.
	// It returns the number of bytes restored.
	Decompress(src, dst []byte) (int, error)
}

// NewCompressor returns the compressor strategy for t.
func NewCompressor(t Type) (Compressor, error) {
	switch t {
	case None:
		return &noneCompressor{}, nil
	case LZ4:
		return &lz4Compressor{}, nil
	case ZSTD:
		return &zstdCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression type %d", uint8(t))
	}
}

// NewDecompressor returns the decompressor strategy for t.
func NewDecompressor(t Type) (Decompressor, error) {
	switch t {
	case None:
		return &noneDecompressor{}, nil
	case LZ4:
		return &lz4Decompressor{}, nil
	case ZSTD:
		return &zstdDecompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression type %d", uint8(t))
	}
}
