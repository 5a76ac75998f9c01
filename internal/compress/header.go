package compress

import (
	"encoding/binary"
	"fmt"
)

// Block framing shared by every codec:
//
//	bytes 0..3  compressedLength  (uint32, little-endian)
//	bytes 4..7  originalLength    (uint32, little-endian)
//	bytes 8..   payload           (compressedLength bytes)
//
// A block whose compressedLength equals its originalLength carries the
// payload stored verbatim. Codecs fall back to stored form whenever
// compression would not shrink the page, so compressedLength < originalLength
// always implies a genuinely compressed payload.
const HeaderLength = 8

func putHeader(dst []byte, compressedLen, originalLen int) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(compressedLen))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(originalLen))
}

// ReadHeader decodes the framing header and validates the declared payload
// length against the bytes actually present in src.
func ReadHeader(src []byte) (compressedLen, originalLen int, err error) {
	if len(src) < HeaderLength {
		return 0, 0, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrCorruptBlock, len(src), HeaderLength)
	}

	compressedLen = int(binary.LittleEndian.Uint32(src[0:4]))
	originalLen = int(binary.LittleEndian.Uint32(src[4:8]))

	if compressedLen > len(src)-HeaderLength {
		return 0, 0, fmt.Errorf("%w: header declares %d payload bytes, only %d present", ErrCorruptBlock, compressedLen, len(src)-HeaderLength)
	}
	return compressedLen, originalLen, nil
}

// MaxBlockSize bounds the framed block size any codec emits for a logical
// page of pageSize bytes. Channel readers size their scratch buffers with it.
func MaxBlockSize(pageSize int) int {
	return HeaderLength + pageSize + pageSize/255 + 64
}

// storeBlock writes src verbatim as a stored block and returns the framed size.
func storeBlock(src, dst []byte) (int, error) {
	if len(dst) < HeaderLength+len(src) {
		return 0, fmt.Errorf("%w: destination buffer too small for stored block", ErrCompression)
	}
	putHeader(dst, len(src), len(src))
	copy(dst[HeaderLength:], src)
	return HeaderLength + len(src), nil
}
