// Package datasource reads CSV uploads from outside the browser: local files
// and HTTP URLs for the one-shot analyze command.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooLarge is returned by ReadAll when a source exceeds the size cap.
var ErrTooLarge = errors.New("source exceeds the size limit")

// Source yields the raw bytes of one upload.
type Source interface {
	// Name is the file name recorded for the upload.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsURL reports whether ref names an HTTP(S) resource rather than a path.
func IsURL(ref string) bool {
	ref = strings.ToLower(ref)
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ReadAll reads src fully. A positive max caps the number of bytes read.
func ReadAll(ctx context.Context, src Source, max int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := io.Reader(rc)
	if max > 0 {
		r = io.LimitReader(rc, max+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	if max > 0 && int64(len(b)) > max {
		return nil, fmt.Errorf("%s: %w (%d bytes)", src.Name(), ErrTooLarge, max)
	}
	return b, nil
}
