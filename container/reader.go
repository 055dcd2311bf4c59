package container

import (
	"encoding/binary"
	"errors"
	"io"
	"iter"
	"math"

	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

// Reader decodes records from a container stream. Each refill reads one
// contiguous block of up to chunk-size records, never more than maxBlockBytes,
// and decodes it. A Reader is not seekable; restart by reopening
// the source.
type Reader struct {
	src     io.Reader
	header  Header
	chunk   int
	recSize int
	buf     []byte
	records []vector.Record
	pos     int
	decoded int64
	err     error
}

// NewReader parses the header from src and returns a Reader positioned at
// the first record. chunkSize <= 0 selects DefaultChunkSize.
func NewReader(src io.Reader, chunkSize int) (*Reader, error) {
	var hb [HeaderSize]byte
	if _, err := io.ReadFull(src, hb[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &errs.Error{Kind: errs.ErrTruncated, Op: opRead, Record: -1, Msg: "header shorter than 24 bytes"}
		}
		return nil, errs.Wrap(errs.ErrIO, opRead, err)
	}
	header, err := decodeHeader(hb[:])
	if err != nil {
		return nil, err
	}
	recSize := header.RecordSize()
	chunk := normalizeChunk(chunkSize)
	if header.Vectors < int64(chunk) {
		chunk = int(header.Vectors)
	}
	if limit := max(1, maxBlockBytes/recSize); chunk > limit {
		chunk = limit
	}
	return &Reader{
		src:     src,
		header:  header,
		chunk:   chunk,
		recSize: recSize,
	}, nil
}

// Header returns the parsed header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next record in file order, or io.EOF once all declared
// records have been returned. A short record region fails with
// errs.ErrTruncated; every later call returns the same error.
func (r *Reader) Next() (vector.Record, error) {
	if r.err != nil {
		return vector.Record{}, r.err
	}
	if r.pos >= len(r.records) {
		if err := r.fill(); err != nil {
			r.err = err
			return vector.Record{}, err
		}
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

// All returns an iterator over the remaining records. Iteration stops after
// the first error, which is yielded with a zero record.
func (r *Reader) All() iter.Seq2[vector.Record, error] {
	return func(yield func(vector.Record, error) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (r *Reader) fill() error {
	remaining := r.header.Vectors - r.decoded
	if remaining <= 0 {
		return io.EOF
	}
	n := r.chunk
	if remaining < int64(n) {
		n = int(remaining)
	}
	want := n * r.recSize
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}
	block := r.buf[:want]
	got, err := io.ReadFull(r.src, block)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &errs.Error{
				Kind:   errs.ErrTruncated,
				Op:     opRead,
				Record: r.decoded + int64(got/r.recSize),
				Msg:    "unexpected end of file",
			}
		}
		return errs.Wrap(errs.ErrIO, opRead, err)
	}

	dim := int(r.header.Dimension)
	values := make([]float64, n*dim)
	if cap(r.records) < n {
		r.records = make([]vector.Record, n)
	}
	r.records = r.records[:n]
	off := 0
	for i := 0; i < n; i++ {
		emb := vector.Embedding(values[i*dim : (i+1)*dim : (i+1)*dim])
		rec := vector.Record{
			VectorID:  int64(binary.LittleEndian.Uint64(block[off:])),
			DocID:     int64(binary.LittleEndian.Uint64(block[off+8:])),
			Embedding: emb,
		}
		off += recordPrefix
		for j := 0; j < dim; j++ {
			emb[j] = math.Float64frombits(binary.LittleEndian.Uint64(block[off:]))
			off += 8
		}
		r.records[i] = rec
	}
	r.pos = 0
	r.decoded += int64(n)
	return nil
}

const (
	// maxBlockBytes caps the record bytes read per refill.
	maxBlockBytes = 64 * fileBufferSize
	// maxPrealloc caps the record slice capacity trusted from a header.
	maxPrealloc = DefaultChunkSize
)

// ReadAll decodes every record from src into memory.
func ReadAll(src io.Reader, chunkSize int) (Header, []vector.Record, error) {
	r, err := NewReader(src, chunkSize)
	if err != nil {
		return Header{}, nil, err
	}
	out := make([]vector.Record, 0, min(r.header.Vectors, maxPrealloc))
	for rec, err := range r.All() {
		if err != nil {
			return r.header, nil, err
		}
		out = append(out, rec)
	}
	return r.header, out, nil
}
