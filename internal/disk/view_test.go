package disk

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/extsort/internal/compress"
)

func writeChannel(t *testing.T, m *Manager, pageSize int, typ compress.Type, data []byte) ChannelID {
	t.Helper()

	id, err := m.CreateChannel()
	require.NoError(t, err)
	out, err := m.OpenOutput(id, pageSize, typ)
	require.NoError(t, err)
	_, err = out.Write(data)
	require.NoError(t, err)
	require.NoError(t, out.Close())
	return id
}

func TestViewRoundTrip(t *testing.T) {
	types := []compress.Type{compress.None, compress.LZ4, compress.ZSTD}
	sizes := []int{0, 1, 63, 64, 65, 1000, 4096}
	const pageSize = 64

	for _, typ := range types {
		for _, n := range sizes {
			t.Run(fmt.Sprintf("%s/%d", typ, n), func(t *testing.T) {
				m := NewManager(nil, t.TempDir(), nil)
				defer m.CloseAll()

				rng := rand.New(rand.NewSource(int64(n)))
				data := make([]byte, n)
				rng.Read(data)

				id := writeChannel(t, m, pageSize, typ, data)

				in, err := m.OpenInput(id, pageSize, typ)
				require.NoError(t, err)
				got, err := io.ReadAll(in)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(data, got))
				require.NoError(t, in.Close())
			})
		}
	}
}

func TestViewUint32Cursor(t *testing.T) {
	m := NewManager(nil, t.TempDir(), nil)
	defer m.CloseAll()

	const pageSize = 16 // force values across page boundaries
	id, err := m.CreateChannel()
	require.NoError(t, err)
	out, err := m.OpenOutput(id, pageSize, compress.LZ4)
	require.NoError(t, err)
	for i := uint32(0); i < 100; i++ {
		require.NoError(t, out.WriteUint32(i*7))
	}
	require.NoError(t, out.Close())

	in, err := m.OpenInput(id, pageSize, compress.LZ4)
	require.NoError(t, err)
	for i := uint32(0); i < 100; i++ {
		x, err := in.ReadUint32()
		require.NoError(t, err)
		assert.Equal(t, i*7, x)
	}
	_, err = in.ReadUint32()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, in.Close())
}

func TestViewCleanEOFOnlyAtBoundary(t *testing.T) {
	m := NewManager(nil, t.TempDir(), nil)
	defer m.CloseAll()

	id := writeChannel(t, m, 32, compress.LZ4, []byte("abcde"))

	in, err := m.OpenInput(id, 32, compress.LZ4)
	require.NoError(t, err)

	buf := make([]byte, 5)
	require.NoError(t, in.ReadFull(buf))

	// Clean end: first byte of the next read hits EOF.
	err = in.ReadFull(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
	require.NoError(t, in.Close())

	// A read that straddles the end is corruption, not EOF.
	in2, err := m.OpenInput(id, 32, compress.LZ4)
	require.NoError(t, err)
	err = in2.ReadFull(make([]byte, 6))
	assert.ErrorIs(t, err, ErrChannelIO)
	require.NoError(t, in2.Close())
}

func TestViewBytesWritten(t *testing.T) {
	m := NewManager(nil, t.TempDir(), nil)
	defer m.CloseAll()

	id, err := m.CreateChannel()
	require.NoError(t, err)
	out, err := m.OpenOutput(id, 64, compress.None)
	require.NoError(t, err)
	_, err = out.Write(make([]byte, 200))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	// 3 full pages + 1 short page, each framed with an 8-byte header.
	assert.Equal(t, int64(200+4*compress.HeaderLength), out.BytesWritten())
}

func TestViewTruncatedChannel(t *testing.T) {
	m := NewManager(nil, t.TempDir(), nil)
	defer m.CloseAll()

	data := bytes.Repeat([]byte("pagepage"), 64)
	id := writeChannel(t, m, 64, compress.LZ4, data)

	// Chop the tail off the backing file: the reader must fail loudly.
	info, err := os.Stat(string(id))
	require.NoError(t, err)
	require.NoError(t, os.Truncate(string(id), info.Size()-3))

	in, err := m.OpenInput(id, 64, compress.LZ4)
	require.NoError(t, err)
	_, err = io.ReadAll(in)
	assert.ErrorIs(t, err, compress.ErrCorruptBlock)
	require.NoError(t, in.Close())
}

func TestViewWriteFailureSurfacesChannelIO(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("channel-", Fault{FailAfterBytes: 16})

	m := NewManager(ffs, t.TempDir(), nil)
	defer m.CloseAll()

	id, err := m.CreateChannel()
	require.NoError(t, err)
	out, err := m.OpenOutput(id, 8, compress.None)
	require.NoError(t, err)

	var werr error
	for i := 0; i < 100; i++ {
		if _, werr = out.Write(make([]byte, 8)); werr != nil {
			break
		}
	}
	require.Error(t, werr)
	assert.ErrorIs(t, werr, ErrChannelIO)
}

func TestViewOutputCloseIdempotent(t *testing.T) {
	m := NewManager(nil, t.TempDir(), nil)
	defer m.CloseAll()

	id, err := m.CreateChannel()
	require.NoError(t, err)
	out, err := m.OpenOutput(id, 64, compress.LZ4)
	require.NoError(t, err)
	require.NoError(t, out.WriteByte('x'))
	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
}
