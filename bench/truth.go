package bench

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/viant/multivec/errs"
)

const opTruth = "bench: ground truth"

// WriteGroundTruth writes the result count on the first line, then one
// space-separated line of ranked ids per query.
func WriteGroundTruth(w io.Writer, results [][]int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(results))
	for _, ids := range results {
		for i, id := range ids {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatInt(id, 10))
		}
		bw.WriteByte('\n')
	}
	return errs.Wrap(errs.ErrIO, opTruth, bw.Flush())
}

// ReadGroundTruth parses a file written by WriteGroundTruth.
func ReadGroundTruth(r io.Reader) ([][]int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errs.Wrap(errs.ErrIO, opTruth, err)
		}
		return nil, &errs.Error{Kind: errs.ErrTruncated, Op: opTruth, Record: -1, Msg: "missing result count"}
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || count < 0 {
		return nil, errs.Schema(opTruth, "invalid result count %q", sc.Text())
	}
	out := make([][]int64, 0, count)
	for len(out) < count && sc.Scan() {
		fields := strings.Fields(sc.Text())
		ids := make([]int64, len(fields))
		for i, f := range fields {
			if ids[i], err = strconv.ParseInt(f, 10, 64); err != nil {
				return nil, &errs.Error{Kind: errs.ErrSchema, Op: opTruth, Record: int64(len(out)),
					Msg: fmt.Sprintf("invalid id %q", f)}
			}
		}
		out = append(out, ids)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrIO, opTruth, err)
	}
	if len(out) < count {
		return nil, &errs.Error{Kind: errs.ErrTruncated, Op: opTruth, Record: int64(len(out)),
			Msg: fmt.Sprintf("declared %d results", count)}
	}
	return out, nil
}

// WriteGroundTruthFile writes results to path.
func WriteGroundTruthFile(path string, results [][]int64) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.WithPath(errs.Wrap(errs.ErrIO, opTruth, err), path)
	}
	if err := WriteGroundTruth(f, results); err != nil {
		_ = f.Close()
		return errs.WithPath(err, path)
	}
	return errs.WithPath(errs.Wrap(errs.ErrIO, opTruth, f.Close()), path)
}

// ReadGroundTruthFile reads results from path.
func ReadGroundTruthFile(path string) ([][]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WithPath(errs.Wrap(errs.ErrIO, opTruth, err), path)
	}
	defer f.Close()
	out, err := ReadGroundTruth(f)
	return out, errs.WithPath(err, path)
}
