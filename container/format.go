package container

import (
	"encoding/binary"

	"github.com/viant/multivec/errs"
)

const (
	// HeaderSize is the byte length of the container header.
	HeaderSize = 24
	// DefaultChunkSize is the number of records buffered per read or write.
	DefaultChunkSize = 4096
	// MaxDimension bounds the per-record allocation accepted from a header.
	MaxDimension = 1 << 16

	recordPrefix = 16
)

// Header describes a container file. Documents is advisory: it records the
// number of distinct doc ids at write time and is not re-validated on read.
type Header struct {
	Vectors   int64
	Documents int64
	Dimension int64
}

// RecordSize returns the byte length of one record for the header's
// dimension.
func (h Header) RecordSize() int { return RecordSize(int(h.Dimension)) }

// RecordSize returns the byte length of one record of the given dimension.
func RecordSize(dim int) int { return recordPrefix + 8*dim }

func (h Header) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(h.Vectors))
	binary.LittleEndian.PutUint64(b[8:16], uint64(h.Documents))
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.Dimension))
}

func decodeHeader(b []byte) (Header, error) {
	h := Header{
		Vectors:   int64(binary.LittleEndian.Uint64(b[0:8])),
		Documents: int64(binary.LittleEndian.Uint64(b[8:16])),
		Dimension: int64(binary.LittleEndian.Uint64(b[16:24])),
	}
	if h.Vectors < 0 || h.Documents < 0 || h.Dimension < 0 {
		return h, errs.Schema(opRead, "negative header field (vectors=%d, documents=%d, dimension=%d)", h.Vectors, h.Documents, h.Dimension)
	}
	if h.Dimension > MaxDimension {
		return h, errs.Schema(opRead, "dimension %d exceeds %d", h.Dimension, MaxDimension)
	}
	return h, nil
}

func normalizeChunk(chunkSize int) int {
	if chunkSize <= 0 {
		return DefaultChunkSize
	}
	return chunkSize
}

const (
	opRead  = "container: read"
	opWrite = "container: write"
	opGroup = "container: group"
)
