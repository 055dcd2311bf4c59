package container

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

// Write serializes docs to dst. Vector ids are assigned sequentially from 0
// in document-then-within-document order and each document's doc id is its
// index in docs. The dimension is taken from the first non-empty embedding;
// any embedding of a different length fails with errs.ErrSchema before a
// single byte is written. Records are flushed every chunkSize records
// (DefaultChunkSize when chunkSize <= 0) and once more on completion.
func Write(dst io.Writer, docs []vector.Document, chunkSize int) (Header, error) {
	header, err := inspect(docs)
	if err != nil {
		return header, err
	}
	chunkSize = normalizeChunk(chunkSize)

	var hb [HeaderSize]byte
	header.encode(hb[:])
	if _, err := dst.Write(hb[:]); err != nil {
		return header, errs.Wrap(errs.ErrIO, opWrite, err)
	}

	dim := int(header.Dimension)
	recSize := RecordSize(dim)
	buf := make([]byte, 0, chunkSize*recSize)
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := dst.Write(buf); err != nil {
			return errs.Wrap(errs.ErrIO, opWrite, err)
		}
		buf = buf[:0]
		pending = 0
		return nil
	}

	var vectorID int64
	for docID, doc := range docs {
		for _, emb := range doc {
			buf = appendRecord(buf, vectorID, int64(docID), emb)
			vectorID++
			pending++
			if pending >= chunkSize {
				if err := flush(); err != nil {
					return header, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return header, err
	}
	return header, nil
}

// inspect computes the header and validates that every embedding matches
// the inferred dimension.
func inspect(docs []vector.Document) (Header, error) {
	header := Header{Documents: int64(len(docs))}
	dim := -1
	for _, doc := range docs {
		if d := doc.Dim(); d > 0 {
			dim = d
			break
		}
	}
	var vectorID int64
	for docID, doc := range docs {
		for _, emb := range doc {
			if dim < 0 {
				dim = len(emb)
			}
			if len(emb) != dim {
				e := errs.Schema(opWrite, "document %d embedding has dimension %d, want %d", docID, len(emb), dim)
				e.Record = vectorID
				return header, e
			}
			vectorID++
		}
	}
	if dim < 0 {
		dim = 0
	}
	header.Vectors = vectorID
	header.Dimension = int64(dim)
	return header, nil
}

func appendRecord(buf []byte, vectorID, docID int64, emb vector.Embedding) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(vectorID))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(docID))
	for _, v := range emb {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}
