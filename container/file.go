package container

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

const fileBufferSize = 256 * 1024

// File is an open container file. Close releases the decompressor and the
// underlying file.
type File struct {
	*Reader
	path    string
	closers []func() error
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Close releases resources held by the file.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Next wraps Reader.Next, annotating errors with the file path.
func (f *File) Next() (vector.Record, error) {
	rec, err := f.Reader.Next()
	if err != nil && err != io.EOF {
		return rec, errs.WithPath(err, f.path)
	}
	return rec, err
}

// Open opens a container file for reading. Paths ending in .zst or .lz4 are
// decompressed transparently.
func Open(path string, chunkSize int) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errs.WithPath(errs.Wrap(errs.ErrIO, opRead, err), path)
	}
	f := &File{path: path, closers: []func() error{fh.Close}}
	var src io.Reader = bufio.NewReaderSize(fh, fileBufferSize)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		dec, err := zstd.NewReader(src)
		if err != nil {
			_ = f.Close()
			return nil, errs.WithPath(errs.Wrap(errs.ErrIO, opRead, err), path)
		}
		f.closers = append(f.closers, func() error { dec.Close(); return nil })
		src = dec
	case ".lz4":
		src = lz4.NewReader(src)
	}
	r, err := NewReader(src, chunkSize)
	if err != nil {
		_ = f.Close()
		return nil, errs.WithPath(err, path)
	}
	f.Reader = r
	return f, nil
}

// ReadFile decodes every record of the container at path.
func ReadFile(path string, chunkSize int) (Header, []vector.Record, error) {
	f, err := Open(path, chunkSize)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	out := make([]vector.Record, 0, min(f.Header().Vectors, maxPrealloc))
	for {
		rec, err := f.Next()
		if err == io.EOF {
			return f.Header(), out, nil
		}
		if err != nil {
			return f.Header(), nil, err
		}
		out = append(out, rec)
	}
}

// ReadGroupedFile decodes the container at path grouped by doc id.
func ReadGroupedFile(path string, chunkSize int) (*Groups, error) {
	f, err := Open(path, chunkSize)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Group(f.Reader)
	if err != nil {
		return nil, errs.WithPath(err, path)
	}
	return g, nil
}

// WriteFile writes docs to path, fully replacing any existing file. Paths
// ending in .zst or .lz4 are compressed. The file is written to a temporary
// sibling and renamed into place on success.
func WriteFile(path string, docs []vector.Document, chunkSize int) (Header, error) {
	dir, base := filepath.Dir(path), filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return Header{}, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	buf := bufio.NewWriterSize(tmp, fileBufferSize)
	var dst io.Writer = buf
	var finish func() error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		enc, err := zstd.NewWriter(buf)
		if err != nil {
			return Header{}, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
		}
		dst, finish = enc, enc.Close
	case ".lz4":
		zw := lz4.NewWriter(buf)
		dst, finish = zw, zw.Close
	}

	header, err := Write(dst, docs, chunkSize)
	if err != nil {
		return header, errs.WithPath(err, path)
	}
	if finish != nil {
		if err := finish(); err != nil {
			return header, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
		}
	}
	if err := buf.Flush(); err != nil {
		return header, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
	}
	if err := tmp.Sync(); err != nil {
		return header, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
	}
	if err := tmp.Close(); err != nil {
		return header, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return header, errs.WithPath(errs.Wrap(errs.ErrIO, opWrite, err), path)
	}
	return header, nil
}
