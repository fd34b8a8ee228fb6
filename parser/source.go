package parser

import (
	"io"
	"os"
	"strings"

	"github.com/jcorbin/cmdlang/internal/fileinput"
)

// namedReader pairs an io.Reader with a Name, the shape fileinput.Input uses
// to attribute source positions back to their originating file.
type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

// ReadSource slurps r (named name) into a single string via
// internal/fileinput.Input's queued rune-reading tracker, so that source
// loading and parsing share one consistent line-tracking model even though
// this package parses from an in-memory string rather than streaming rune
// by rune.
func ReadSource(name string, r io.Reader) (string, error) {
	in := &fileinput.Input{Queue: []io.Reader{namedReader{r, name}}}
	var b strings.Builder
	for {
		r, _, err := in.ReadRune()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if r != 0 {
			b.WriteRune(r)
		}
	}
}

// ReadSourceFile opens and reads name via ReadSource.
func ReadSourceFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ReadSource(name, f)
}
