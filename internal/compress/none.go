package compress

import "fmt"

// The none codec keeps the framing so channel readers never branch on codec
// identity; pages are simply stored verbatim.

type noneCompressor struct{}

func (noneCompressor) MaxCompressedSize(n int) int {
	return HeaderLength + n
}

func (noneCompressor) Compress(src, dst []byte) (int, error) {
	return storeBlock(src, dst)
}

type noneDecompressor struct{}

func (noneDecompressor) Decompress(src, dst []byte) (int, error) {
	compressedLen, originalLen, err := ReadHeader(src)
	if err != nil {
		return 0, err
	}
	if compressedLen != originalLen {
		return 0, fmt.Errorf("%w: stored block declares compressed %d != original %d", ErrCorruptBlock, compressedLen, originalLen)
	}
	if originalLen > len(dst) {
		return 0, fmt.Errorf("%w: original length %d exceeds destination %d", ErrCorruptBlock, originalLen, len(dst))
	}
	copy(dst, src[HeaderLength:HeaderLength+compressedLen])
	return originalLen, nil
}
