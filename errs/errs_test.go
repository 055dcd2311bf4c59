package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatch(t *testing.T) {
	err := Wrap(ErrIO, "container: write", io.ErrShortWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, io.ErrShortWrite))
	assert.False(t, errors.Is(err, ErrSchema))
	assert.Nil(t, Wrap(ErrIO, "x", nil))
}

func TestErrorMessageIdentifiesLocation(t *testing.T) {
	err := &Error{Kind: ErrTruncated, Op: "container: read", Path: "corpus.fivecs", Record: 3, Msg: "want 5 records"}
	assert.Equal(t, "container: read: truncated file in corpus.fivecs at record 3: want 5 records", err.Error())
}

func TestWithPath(t *testing.T) {
	err := Schema("container: write", "dimension %d != %d", 3, 2)
	annotated := WithPath(err, "/tmp/a.fivecs")
	var e *Error
	require.True(t, errors.As(annotated, &e))
	assert.Equal(t, "/tmp/a.fivecs", e.Path)
	assert.Equal(t, "", err.Path)

	plain := errors.New("plain")
	assert.Equal(t, plain, WithPath(plain, "x"))
}
