package export

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"

	"encoding/json/v2"
)

// ErrEntryNotFound indicates a bundle lacks the requested entry.
var ErrEntryNotFound = errors.New("entry not found in bundle")

// lineWriter streams values as JSON lines into one zip entry.
type lineWriter struct {
	w     io.Writer
	count int
}

func newLineWriter(zw *zip.Writer, name string) (*lineWriter, error) {
	w, err := zw.Create(name)
	if err != nil {
		return nil, err
	}
	return &lineWriter{w: w}, nil
}

func (w *lineWriter) Write(v any) error {
	if err := json.MarshalWrite(w.w, v); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	w.count++
	return nil
}

// OpenEntry opens a named entry of a bundle.
func OpenEntry(zr *zip.ReadCloser, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, ErrEntryNotFound
}

// Lines iterates the JSON lines of rc, decoding each into T. Bad lines yield
// an error and iteration continues. rc is closed when iteration ends.
func Lines[T any](rc io.ReadCloser) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var v T
			if err := json.UnmarshalRead(bytes.NewReader(line), &v); err != nil {
				var zero T
				if !yield(zero, err) {
					return
				}
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}
