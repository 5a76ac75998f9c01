package extsort

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
)

// u64Serializer encodes fixed 8-byte little-endian keys.
type u64Serializer struct{}

func (u64Serializer) CreateInstance() uint64 { return 0 }

func (u64Serializer) Serialize(rec uint64, out OutputView) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], rec)
	_, err := out.Write(b[:])
	return err
}

func (u64Serializer) Deserialize(_ uint64, in InputView) (uint64, error) {
	var b [8]byte
	if err := in.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (u64Serializer) Compare(a, b uint64) int { return cmp.Compare(a, b) }

// blobSerializer encodes length-prefixed byte strings ordered
// lexicographically; payloads may exceed the page size.
type blobSerializer struct{}

func (blobSerializer) CreateInstance() []byte { return nil }

func (blobSerializer) Serialize(rec []byte, out OutputView) error {
	if err := out.WriteUint32(uint32(len(rec))); err != nil {
		return err
	}
	_, err := out.Write(rec)
	return err
}

func (blobSerializer) Deserialize(reuse []byte, in InputView) ([]byte, error) {
	n, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	if cap(reuse) < int(n) {
		reuse = make([]byte, n)
	}
	reuse = reuse[:n]
	if err := in.ReadFull(reuse); err != nil {
		return nil, err
	}
	return reuse, nil
}

func (blobSerializer) Compare(a, b []byte) int { return bytes.Compare(a, b) }

var errSerializerFault = errors.New("serializer fault")

// faultySerializer fails after a fixed number of Serialize calls, to abort a
// merge round from inside the record codec.
type faultySerializer struct {
	u64Serializer
	failAfter  int
	serialized int
}

func (s *faultySerializer) Serialize(rec uint64, out OutputView) error {
	s.serialized++
	if s.serialized > s.failAfter {
		return fmt.Errorf("record %d: %w", s.serialized, errSerializerFault)
	}
	return s.u64Serializer.Serialize(rec, out)
}

// faultyDeserializer fails after a fixed number of Deserialize calls, to
// abort a merge round from the read side.
type faultyDeserializer struct {
	u64Serializer
	failAfter    int
	deserialized int
}

func (s *faultyDeserializer) Deserialize(reuse uint64, in InputView) (uint64, error) {
	s.deserialized++
	if s.deserialized > s.failAfter {
		return 0, fmt.Errorf("record %d: %w", s.deserialized, errSerializerFault)
	}
	return s.u64Serializer.Deserialize(reuse, in)
}
