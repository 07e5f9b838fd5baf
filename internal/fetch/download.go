package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/worldforge/hammer/internal/ctxlog"
)

// CachePath is where Download stores the file behind rawURL.
func CachePath(cacheDir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url %q does not name a file", rawURL)
	}
	return filepath.Join(cacheDir, name), nil
}

// Download fetches rawURL into cacheDir and returns the local path. A file
// already in the cache is reused without contacting the server. Partial
// downloads never appear under the final name.
func Download(ctx context.Context, client *http.Client, rawURL, cacheDir string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	dest, err := CachePath(cacheDir, rawURL)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		logger.Debug("Using cached download.", "path", dest)
		return dest, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	logger.Info("Downloading.", "path", dest)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(cacheDir, filepath.Base(dest)+".part-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}

	logger.Info("Download complete.", "size", units.HumanSize(float64(n)))
	return dest, nil
}
