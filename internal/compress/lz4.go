package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Compressor frames LZ4 block output (not the LZ4 frame format).
type lz4Compressor struct {
	// hashTable is the compression state reused across pages.
	hashTable [1 << 16]int
}

func (c *lz4Compressor) MaxCompressedSize(n int) int {
	return HeaderLength + lz4.CompressBlockBound(n)
}

func (c *lz4Compressor) Compress(src, dst []byte) (int, error) {
	if len(dst) < c.MaxCompressedSize(len(src)) {
		return 0, fmt.Errorf("%w: destination buffer too small for %d input bytes", ErrCompression, len(src))
	}

	n, err := lz4.CompressBlock(src, dst[HeaderLength:], c.hashTable[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	if n == 0 || n >= len(src) {
		// Incompressible page.
		return storeBlock(src, dst)
	}

	putHeader(dst, n, len(src))
	return HeaderLength + n, nil
}

type lz4Decompressor struct{}

func (d *lz4Decompressor) Decompress(src, dst []byte) (int, error) {
	compressedLen, originalLen, err := ReadHeader(src)
	if err != nil {
		return 0, err
	}
	if originalLen > len(dst) {
		return 0, fmt.Errorf("%w: original length %d exceeds destination %d", ErrCorruptBlock, originalLen, len(dst))
	}

	payload := src[HeaderLength : HeaderLength+compressedLen]
	if compressedLen == originalLen {
		copy(dst, payload)
		return originalLen, nil
	}

	n, err := lz4.UncompressBlock(payload, dst[:originalLen])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	if n != originalLen {
		return 0, fmt.Errorf("%w: decompressed %d bytes, header declared %d", ErrCorruptBlock, n, originalLen)
	}
	return n, nil
}
