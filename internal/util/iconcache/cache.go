// Package iconcache downloads app icons into a local cache directory.
package iconcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp" // Register WebP format

	httputil "github.com/orionstore/orion/internal/util/http"
)

// Icon is a cached icon.
type Icon struct {
	Path   string
	Format string
	Width  int
	Height int
}

func describe(path string, r io.Reader) (*Icon, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("icon is not a supported image: %w", err)
	}
	return &Icon{Path: path, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Options configures a download.
type Options struct {
	// Dir is the cache directory. If empty, DefaultDir is used.
	Dir string

	// Refresh downloads the icon even when a cached copy exists.
	Refresh bool

	// Client overrides the HTTP client.
	Client *http.Client
}

// DefaultDir returns the default icon cache directory.
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine cache directory: %w", err)
		}
		return filepath.Join(home, ".cache", "orion", "icons"), nil
	}
	return filepath.Join(dir, "orion", "icons"), nil
}

// Filename derives the cache file name of an icon URL: a hash of the URL and
// the URL's extension, .png when it has none.
func Filename(iconURL string) string {
	sum := sha256.Sum256([]byte(iconURL))

	p := iconURL
	if i := strings.IndexAny(p, "?#"); i != -1 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		ext = ".png"
	}
	return hex.EncodeToString(sum[:16]) + ext
}

func openCached(path string) (*Icon, error) {
	f, err := os.Open(path) // #nosec G304 - Path derived from a hash in the cache directory
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return describe(path, f)
}

// Fetch returns the cached icon of iconURL, downloading it when it is not
// cached yet. Responses that are not PNG, JPEG, GIF or WebP images are
// rejected.
func Fetch(ctx context.Context, iconURL string, opts Options) (*Icon, error) {
	if !strings.HasPrefix(iconURL, "http://") && !strings.HasPrefix(iconURL, "https://") {
		return nil, fmt.Errorf("invalid icon URL %q: must start with http:// or https://", iconURL)
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - Cache directory needs standard permissions
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	target := filepath.Join(dir, Filename(iconURL))
	if !opts.Refresh {
		if icon, err := openCached(target); err == nil {
			return icon, nil
		}
	}

	resp, err := httputil.Fetch(ctx, iconURL, httputil.FetchOptions{Client: opts.Client})
	if err != nil {
		return nil, fmt.Errorf("failed to download icon: %w", err)
	}
	icon, err := describe(target, bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, ".icon-*")
	if err != nil {
		return nil, fmt.Errorf("failed to write icon: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(resp.Body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write icon: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to write icon: %w", err)
	}
	return icon, nil
}
