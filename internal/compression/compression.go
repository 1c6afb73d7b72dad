// Package compression reads and writes compressed documents, choosing the
// format from the file name.
package compression

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// MaxDecompressedSize bounds the output of Decompress.
const MaxDecompressedSize = 100 * 1024 * 1024

// Format is a compression format.
type Format string

// Supported formats.
const (
	None  Format = ""
	Gzip  Format = "gzip"
	Xz    Format = "xz"
	Bzip2 Format = "bzip2"
)

// FormatOf returns the format implied by the extension of name. A query
// string or fragment is ignored so URLs can be passed as is.
func FormatOf(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".xz"):
		return Xz
	case strings.HasSuffix(name, ".bz2"):
		return Bzip2
	default:
		return None
	}
}

// Decompress returns data decoded according to the extension of name. Data
// of a name without a known extension is returned unchanged.
func Decompress(name string, data []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	format := FormatOf(name)
	switch format {
	case None:
		return data, nil
	case Gzip:
		var gzr *gzip.Reader
		if gzr, err = gzip.NewReader(bytes.NewReader(data)); err == nil {
			defer gzr.Close()
			r = gzr
		}
	case Xz:
		r, err = xz.NewReader(bytes.NewReader(data))
	case Bzip2:
		r = bzip2.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s reader: %w", format, err)
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, fmt.Errorf("%s exceeds %d bytes when decompressed", name, MaxDecompressedSize)
	}
	return out, nil
}

// Compress encodes data according to the extension of name. Bzip2 can only
// be read.
func Compress(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch format := FormatOf(name); format {
	case None:
		return data, nil
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Xz:
		xzw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		w = xzw
	default:
		return nil, fmt.Errorf("writing %s is not supported", format)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
