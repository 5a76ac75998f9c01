package disk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/extsort/internal/compress"
)

// InputView is the read-phase view of a sealed channel. It reads framed
// blocks sequentially, decompresses each into a logical page and exposes a
// page-boundary-transparent byte cursor.
//
// Every page decompresses to exactly the page size except possibly the final
// page of the channel, which may be shorter.
type InputView struct {
	f        File
	pageSize int
	page     []byte
	n, pos   int
	dec      compress.Decompressor
	block    []byte
	eof      bool
	closed   bool
	scratch  [4]byte
}

func newInputView(f File, pageSize int, dec compress.Decompressor) *InputView {
	return &InputView{
		f:        f,
		pageSize: pageSize,
		page:     make([]byte, pageSize),
		dec:      dec,
		block:    make([]byte, compress.MaxBlockSize(pageSize)),
	}
}

// fillPage reads and decompresses the next block. It returns io.EOF only at
// a clean block boundary.
func (v *InputView) fillPage() error {
	if v.eof {
		return io.EOF
	}

	if _, err := io.ReadFull(v.f, v.block[:compress.HeaderLength]); err != nil {
		if err == io.EOF {
			v.eof = true
			return io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: channel truncated inside block header", compress.ErrCorruptBlock)
		}
		return fmt.Errorf("%w: read block header: %w", ErrChannelIO, err)
	}

	compressedLen := int(binary.LittleEndian.Uint32(v.block[0:4]))
	if compress.HeaderLength+compressedLen > len(v.block) {
		return fmt.Errorf("%w: header declares %d payload bytes, page size allows at most %d", compress.ErrCorruptBlock, compressedLen, len(v.block)-compress.HeaderLength)
	}
	if _, err := io.ReadFull(v.f, v.block[compress.HeaderLength:compress.HeaderLength+compressedLen]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: block payload shorter than declared %d bytes", compress.ErrCorruptBlock, compressedLen)
		}
		return fmt.Errorf("%w: read block payload: %w", ErrChannelIO, err)
	}

	n, err := v.dec.Decompress(v.block[:compress.HeaderLength+compressedLen], v.page)
	if err != nil {
		return err
	}
	v.n = n
	v.pos = 0
	return nil
}

// Read implements io.Reader over the logical byte stream.
func (v *InputView) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if v.pos == v.n {
		if err := v.fillPage(); err != nil {
			return 0, err
		}
	}
	n := copy(p, v.page[v.pos:v.n])
	v.pos += n
	return n, nil
}

// ReadByte reads a single byte.
func (v *InputView) ReadByte() (byte, error) {
	if v.pos == v.n {
		if err := v.fillPage(); err != nil {
			return 0, err
		}
	}
	c := v.page[v.pos]
	v.pos++
	return c, nil
}

// ReadFull fills p entirely. It returns io.EOF only when the channel ends
// before the first byte; a channel ending mid-way is reported as channel
// corruption, never silently truncated.
func (v *InputView) ReadFull(p []byte) error {
	read := 0
	for read < len(p) {
		n, err := v.Read(p[read:])
		read += n
		if err != nil {
			if err == io.EOF {
				if read == 0 {
					return io.EOF
				}
				return fmt.Errorf("%w: channel ended mid-record: %w", ErrChannelIO, io.ErrUnexpectedEOF)
			}
			return err
		}
	}
	return nil
}

// ReadUint32 reads a little-endian uint32. io.EOF is returned only at a
// clean record boundary.
func (v *InputView) ReadUint32() (uint32, error) {
	if err := v.ReadFull(v.scratch[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v.scratch[:]), nil
}

// Close releases the underlying file. It does not delete the channel; that
// is the manager's job.
func (v *InputView) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if err := v.f.Close(); err != nil {
		return fmt.Errorf("%w: close channel: %w", ErrChannelIO, err)
	}
	return nil
}
