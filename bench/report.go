package bench

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/viant/multivec/errs"
)

// WriteReport encodes s as YAML.
func WriteReport(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errs.Wrap(errs.ErrIO, "bench: report", err)
	}
	return errs.Wrap(errs.ErrIO, "bench: report", enc.Close())
}

// WriteReportFile writes s as YAML to path.
func WriteReportFile(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errs.Wrap(errs.ErrIO, "bench: report", err)
	}
	return errs.WithPath(errs.Wrap(errs.ErrIO, "bench: report", os.WriteFile(path, data, 0o644)), path)
}

// ReadReport decodes a YAML summary.
func ReadReport(r io.Reader) (Summary, error) {
	var s Summary
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Summary{}, errs.Wrap(errs.ErrSchema, "bench: report", err)
	}
	return s, nil
}
