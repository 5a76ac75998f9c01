package extsort

import "io"

// OutputView is the page-boundary-transparent byte cursor a Serializer
// writes records to. Multi-byte helpers use little-endian order.
type OutputView interface {
	io.Writer
	io.ByteWriter
	WriteUint32(x uint32) error
}

// InputView is the byte cursor a Serializer reads records from. ReadFull and
// ReadUint32 return io.EOF only at a clean record boundary; a channel ending
// mid-record is reported as an error.
type InputView interface {
	io.Reader
	io.ByteReader
	ReadFull(p []byte) error
	ReadUint32() (uint32, error)
}

// Serializer is the record codec and comparator bundle supplied by the
// caller. Records are opaque to the engine: it never interprets their
// contents beyond the encoded length and the ordering Compare defines.
type Serializer[R any] interface {
	// CreateInstance returns a fresh record for the engine to deserialize into.
	CreateInstance() R

	// Serialize writes rec to out in a fixed format Deserialize can read back.
	Serialize(rec R, out OutputView) error

	// Deserialize reads the next record, reusing reuse where possible, and
	// returns io.EOF when the run ends cleanly before the first byte.
	Deserialize(reuse R, in InputView) (R, error)

	// Compare returns a negative value if a orders before b, zero if they are
	// equal and a positive value otherwise. It is the sole ordering source;
	// stability across equal keys from different runs is not guaranteed
	// unless Compare encodes an explicit tiebreaker.
	Compare(a, b R) int
}
