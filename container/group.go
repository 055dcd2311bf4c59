package container

import (
	"io"

	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

// Groups is a decoded container collapsed by doc id. IDs keeps the order in
// which documents first appear in the file.
type Groups struct {
	IDs  []int64
	Docs map[int64]vector.Document
}

// Len returns the number of documents.
func (g *Groups) Len() int { return len(g.IDs) }

// Documents returns the documents in file order.
func (g *Groups) Documents() []vector.Document {
	out := make([]vector.Document, len(g.IDs))
	for i, id := range g.IDs {
		out[i] = g.Docs[id]
	}
	return out
}

// ReadGrouped decodes src and groups consecutive records sharing a doc id
// into one document. Equal doc ids must be contiguous in file order: a doc
// id that reappears after another document's run fails with errs.ErrSchema
// naming the offending record.
func ReadGrouped(src io.Reader, chunkSize int) (*Groups, error) {
	r, err := NewReader(src, chunkSize)
	if err != nil {
		return nil, err
	}
	return Group(r)
}

// Group consumes the remaining records of r into Groups.
func Group(r *Reader) (*Groups, error) {
	g := &Groups{Docs: make(map[int64]vector.Document)}
	var (
		current vector.Document
		docID   int64
		started bool
		index   int64
	)
	for rec, err := range r.All() {
		if err != nil {
			return nil, err
		}
		if !started || rec.DocID != docID {
			if started {
				g.Docs[docID] = current
			}
			if _, seen := g.Docs[rec.DocID]; seen {
				e := errs.Schema(opGroup, "doc id %d appears in a non-contiguous run", rec.DocID)
				e.Record = index
				return nil, e
			}
			docID = rec.DocID
			current = nil
			started = true
			g.IDs = append(g.IDs, docID)
		}
		current = append(current, rec.Embedding)
		index++
	}
	if started {
		g.Docs[docID] = current
	}
	return g, nil
}
