package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Encoder/decoder pools shared by all zstd views in the process.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	// SpeedDefault balances compression ratio vs speed for spill traffic.
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

type zstdCompressor struct{}

func (c *zstdCompressor) MaxCompressedSize(n int) int {
	// Generous bound; incompressible pages fall back to stored form, which
	// needs exactly HeaderLength+n.
	return HeaderLength + n + n/255 + 64
}

func (c *zstdCompressor) Compress(src, dst []byte) (int, error) {
	if len(dst) < c.MaxCompressedSize(len(src)) {
		return 0, fmt.Errorf("%w: destination buffer too small for %d input bytes", ErrCompression, len(src))
	}

	enc := getZstdEncoder()
	out := enc.EncodeAll(src, dst[HeaderLength:HeaderLength:len(dst)])
	putZstdEncoder(enc)

	if len(out) == 0 || len(out) >= len(src) {
		return storeBlock(src, dst)
	}

	// EncodeAll appends into dst's backing array unless it had to grow.
	copy(dst[HeaderLength:], out)
	putHeader(dst, len(out), len(src))
	return HeaderLength + len(out), nil
}

type zstdDecompressor struct{}

func (d *zstdDecompressor) Decompress(src, dst []byte) (int, error) {
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

	dec := getZstdDecoder()
	out, err := dec.DecodeAll(payload, dst[:0])
	putZstdDecoder(dec)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	if len(out) != originalLen {
		return 0, fmt.Errorf("%w: decompressed %d bytes, header declared %d", ErrCorruptBlock, len(out), originalLen)
	}
	if len(out) > 0 && &out[0] != &dst[0] {
		copy(dst, out)
	}
	return len(out), nil
}
