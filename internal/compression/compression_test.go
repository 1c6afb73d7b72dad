package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"mirror.json", None},
		{"mirror.json.gz", Gzip},
		{"MIRROR.JSON.XZ", Xz},
		{"apps.json.bz2", Bzip2},
		{"https://example.com/mirror.json.xz?v=3", Xz},
		{"https://example.com/mirror.json?format=.gz", None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOf(tt.name); got != tt.want {
				t.Errorf("FormatOf(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat(`{"org/app": []}`, 100))

	for _, name := range []string{"mirror.json", "mirror.json.gz", "mirror.json.xz"} {
		t.Run(name, func(t *testing.T) {
			packed, err := Compress(name, data)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if FormatOf(name) != None && len(packed) >= len(data) {
				t.Errorf("Compress() did not shrink repetitive input: %d >= %d", len(packed), len(data))
			}

			unpacked, err := Decompress(name, packed)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if !bytes.Equal(unpacked, data) {
				t.Error("Decompress() did not return the original data")
			}
		})
	}
}

func TestCompress_Bzip2Unsupported(t *testing.T) {
	if _, err := Compress("mirror.json.bz2", []byte("x")); err == nil {
		t.Error("Compress() expected error for bzip2")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	for _, name := range []string{"a.gz", "a.xz", "a.bz2"} {
		if _, err := Decompress(name, []byte("not compressed")); err == nil {
			t.Errorf("Decompress(%q) expected error", name)
		}
	}
}
