package container

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

func sampleDocs() []vector.Document {
	return []vector.Document{
		{{1, 0, 0.5}, {0, 1, -0.25}},
		{{3.5, 2, 1}},
		{{-1, -2, -3}, {4, 5, 6}, {7, 8, 9}},
	}
}

func encode(t *testing.T, docs []vector.Document, chunk int) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := Write(&buf, docs, chunk)
	require.NoError(t, err)
	return buf.Bytes()
}

// rawContainer builds a container with explicit doc ids per record.
func rawContainer(header Header, docIDs []int64, dim int) []byte {
	out := make([]byte, HeaderSize)
	header.encode(out)
	for i, docID := range docIDs {
		emb := make(vector.Embedding, dim)
		for j := range emb {
			emb[j] = float64(i + j)
		}
		out = appendRecord(out, int64(i), docID, emb)
	}
	return out
}

func TestWriteRead_RoundTrip(t *testing.T) {
	docs := sampleDocs()
	data := encode(t, docs, 0)

	header, records, err := ReadAll(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, Header{Vectors: 6, Documents: 3, Dimension: 3}, header)
	require.Len(t, records, 6)

	var want []vector.Record
	var vid int64
	for docID, doc := range docs {
		for _, emb := range doc {
			want = append(want, vector.Record{VectorID: vid, DocID: int64(docID), Embedding: emb})
			vid++
		}
	}
	assert.Equal(t, want, records)

	groups, err := ReadGrouped(bytes.NewReader(data), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, groups.IDs)
	assert.Equal(t, docs, groups.Documents())
}

func TestWrite_LayoutIsLittleEndian(t *testing.T) {
	data := encode(t, []vector.Document{{{1.0}}}, 0)
	require.Len(t, data, HeaderSize+RecordSize(1))
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, data[0:8])
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, data[8:16])
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, data[16:24])
	// 1.0 == 0x3FF0000000000000
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, data[40:48])
}

func TestRead_ChunkingInvariance(t *testing.T) {
	var docs []vector.Document
	for i := 0; i < 50; i++ {
		doc := vector.Document{}
		for j := 0; j <= i%4; j++ {
			doc = append(doc, vector.Embedding{float64(i), float64(j), float64(i * j)})
		}
		docs = append(docs, doc)
	}
	data := encode(t, docs, 7)

	_, small, err := ReadAll(bytes.NewReader(data), 1)
	require.NoError(t, err)
	_, large, err := ReadAll(bytes.NewReader(data), 10000)
	require.NoError(t, err)
	assert.Equal(t, small, large)

	for _, chunk := range []int{1, 3, 4096} {
		assert.Equal(t, data, encode(t, docs, chunk), "chunk=%d", chunk)
	}
}

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes++
	return c.Buffer.Write(p)
}

func TestWrite_FlushesPerChunk(t *testing.T) {
	docs := make([]vector.Document, 10)
	for i := range docs {
		docs[i] = vector.Document{{float64(i)}}
	}
	w := &countingWriter{}
	_, err := Write(w, docs, 4)
	require.NoError(t, err)
	// header + 4 + 4 + 2
	assert.Equal(t, 4, w.writes)
}

func TestWrite_DimensionMismatch(t *testing.T) {
	docs := []vector.Document{{{1, 2}}, {{1, 2}, {1, 2, 3}}}
	var buf bytes.Buffer
	_, err := Write(&buf, docs, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSchema))
	assert.Equal(t, 0, buf.Len())

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(2), e.Record)
}

func TestWrite_EmptyDocumentsKeepIndexes(t *testing.T) {
	docs := []vector.Document{{}, {{1, 1}}, nil, {{2, 2}}}
	data := encode(t, docs, 0)
	header, records, err := ReadAll(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), header.Documents)
	assert.Equal(t, int64(2), header.Vectors)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].DocID)
	assert.Equal(t, int64(3), records[1].DocID)
	assert.Equal(t, int64(1), records[1].VectorID)
}

func TestWrite_EmptyCorpus(t *testing.T) {
	data := encode(t, nil, 0)
	assert.Len(t, data, HeaderSize)
	header, records, err := ReadAll(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, Header{}, header)
	assert.Empty(t, records)
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	f.after--
	return len(p), nil
}

func TestWrite_IOError(t *testing.T) {
	_, err := Write(&failingWriter{after: 1}, sampleDocs(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIO))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}

func TestRead_TruncatedRecords(t *testing.T) {
	docs := make([]vector.Document, 5)
	for i := range docs {
		docs[i] = vector.Document{{float64(i), 1}}
	}
	data := encode(t, docs, 0)
	recSize := RecordSize(2)

	testCases := []struct {
		name   string
		length int
		chunk  int
		record int64
	}{
		{name: "three full records", length: HeaderSize + 3*recSize, chunk: 0, record: 3},
		{name: "three full records chunk 1", length: HeaderSize + 3*recSize, chunk: 1, record: 3},
		{name: "partial fourth record", length: HeaderSize + 3*recSize + 5, chunk: 2, record: 3},
		{name: "no records", length: HeaderSize, chunk: 0, record: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, records, err := ReadAll(bytes.NewReader(data[:tc.length]), tc.chunk)
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.Is(err, errs.ErrTruncated))
			var e *errs.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.record, e.Record)
		})
	}
}

func TestRead_LargeDeclaredHeaderBoundsAllocation(t *testing.T) {
	data := rawContainer(Header{Vectors: DefaultChunkSize, Documents: 1, Dimension: MaxDimension}, nil, MaxDimension)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, records, err := ReadAll(bytes.NewReader(data), 0)
	runtime.ReadMemStats(&after)

	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, errs.ErrTruncated))
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(4*maxBlockBytes))
}

func TestRead_BlockCappedForWideRecords(t *testing.T) {
	docs := make([]vector.Document, 40)
	for i := range docs {
		emb := make(vector.Embedding, MaxDimension)
		emb[i] = float64(i + 1)
		docs[i] = vector.Document{emb}
	}
	data := encode(t, docs, 0)

	r, err := NewReader(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Less(t, r.chunk, len(docs))
	assert.LessOrEqual(t, r.chunk*r.recSize, maxBlockBytes)

	_, records, err := ReadAll(bytes.NewReader(data), 0)
	require.NoError(t, err)
	require.Len(t, records, len(docs))
	for i, rec := range records {
		assert.Equal(t, int64(i), rec.DocID)
		assert.Equal(t, float64(i+1), rec.Embedding[i])
	}
}

func TestRead_TruncatedErrorIsSticky(t *testing.T) {
	data := encode(t, []vector.Document{{{1}, {2}}}, 0)
	r, err := NewReader(bytes.NewReader(data[:HeaderSize+RecordSize(1)]), 2)
	require.NoError(t, err)
	_, err = r.Next()
	require.True(t, errors.Is(err, errs.ErrTruncated))
	_, err = r.Next()
	require.True(t, errors.Is(err, errs.ErrTruncated))
}

func TestRead_ShortHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader(make([]byte, 10)), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTruncated))
}

func TestRead_NegativeHeader(t *testing.T) {
	data := rawContainer(Header{Vectors: -1, Documents: 1, Dimension: 2}, nil, 2)
	_, err := NewReader(bytes.NewReader(data), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSchema))
}

func TestRead_NextReturnsEOF(t *testing.T) {
	data := encode(t, []vector.Document{{{1}}}, 0)
	r, err := NewReader(bytes.NewReader(data), 0)
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReadGrouped_NonContiguous(t *testing.T) {
	data := rawContainer(Header{Vectors: 4, Documents: 2, Dimension: 2}, []int64{0, 0, 1, 0}, 2)
	_, err := ReadGrouped(bytes.NewReader(data), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSchema))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(3), e.Record)
}

func TestReadGrouped_CallerOrderedIDs(t *testing.T) {
	data := rawContainer(Header{Vectors: 3, Documents: 2, Dimension: 1}, []int64{7, 3, 3}, 1)
	groups, err := ReadGrouped(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3}, groups.IDs)
	assert.Len(t, groups.Docs[3], 2)
	assert.Equal(t, 2, groups.Len())
}

func TestFile_RoundTripWithCompression(t *testing.T) {
	docs := sampleDocs()
	for _, name := range []string{"corpus.fivecs", "corpus.fivecs.zst", "corpus.fivecs.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			header, err := WriteFile(path, docs, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(6), header.Vectors)

			groups, err := ReadGroupedFile(path, 4)
			require.NoError(t, err)
			assert.Equal(t, docs, groups.Documents())

			_, records, err := ReadFile(path, 1)
			require.NoError(t, err)
			assert.Len(t, records, 6)
		})
	}
}

func TestFile_TruncatedErrorNamesPath(t *testing.T) {
	docs := []vector.Document{{{1, 2}}, {{3, 4}}, {{5, 6}}}
	path := filepath.Join(t.TempDir(), "short.fivecs")
	data := encode(t, docs, 0)
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	_, _, err := ReadFile(path, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTruncated))
	assert.Contains(t, err.Error(), path)
}

func TestFile_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.fivecs"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
