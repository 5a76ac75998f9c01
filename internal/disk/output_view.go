package disk

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/extsort/internal/compress"
)

// OutputView is the write-phase view of a channel. Appended bytes are
// buffered into fixed-size logical pages; each full page is compressed into
// one framed block and written out. The final page of a channel may be
// shorter than the page size.
type OutputView struct {
	f        File
	pageSize int
	page     []byte
	pos      int
	comp     compress.Compressor
	block    []byte
	written  int64
	closed   bool
	scratch  [4]byte
}

func newOutputView(f File, pageSize int, comp compress.Compressor) *OutputView {
	return &OutputView{
		f:        f,
		pageSize: pageSize,
		page:     make([]byte, pageSize),
		comp:     comp,
		block:    make([]byte, comp.MaxCompressedSize(pageSize)),
	}
}

// Write appends p, transparently crossing page boundaries.
func (v *OutputView) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if v.pos == v.pageSize {
			if err := v.flushPage(); err != nil {
				return total, err
			}
		}
		n := copy(v.page[v.pos:], p)
		v.pos += n
		total += n
		p = p[n:]
	}
	return total, nil
}

// WriteByte appends a single byte.
func (v *OutputView) WriteByte(c byte) error {
	if v.pos == v.pageSize {
		if err := v.flushPage(); err != nil {
			return err
		}
	}
	v.page[v.pos] = c
	v.pos++
	return nil
}

// WriteUint32 appends x in little-endian order.
func (v *OutputView) WriteUint32(x uint32) error {
	binary.LittleEndian.PutUint32(v.scratch[:], x)
	_, err := v.Write(v.scratch[:])
	return err
}

func (v *OutputView) flushPage() error {
	if v.pos == 0 {
		return nil
	}

	n, err := v.comp.Compress(v.page[:v.pos], v.block)
	if err != nil {
		return err
	}
	if _, err := v.f.Write(v.block[:n]); err != nil {
		return fmt.Errorf("%w: write channel page: %w", ErrChannelIO, err)
	}
	v.written += int64(n)
	v.pos = 0
	return nil
}

// BytesWritten returns the number of physical bytes written so far, not
// counting the still-buffered page.
func (v *OutputView) BytesWritten() int64 {
	return v.written
}

// Close flushes the final page, syncs and seals the channel. After Close the
// channel may be opened for reading.
func (v *OutputView) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true

	if err := v.flushPage(); err != nil {
		v.f.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := v.f.Sync(); err != nil {
		v.f.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("%w: sync channel: %w", ErrChannelIO, err)
	}
	if err := v.f.Close(); err != nil {
		return fmt.Errorf("%w: close channel: %w", ErrChannelIO, err)
	}
	return nil
}
