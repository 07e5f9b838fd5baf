package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
	"github.com/worldforge/hammer/internal/config"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/fetch"
	"github.com/worldforge/hammer/internal/fsutil"
)

const (
	WrapServer = "wrap-server"
	FetchMedia = "fetch-media"
)

// wrapperMarker identifies scripts written by WrapServerBinary.
const wrapperMarker = "# generated by hammer wrap-server"

const wrapperTemplate = `#!/bin/sh
%s
prefix="$(cd "$(dirname "$0")/.." && pwd)"
LD_LIBRARY_PATH="$prefix/lib${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}"
export LD_LIBRARY_PATH
exec "$prefix/bin/%s.bin" "$@"
`

// MediaOptions configure the fetch-media hook.
type MediaOptions struct {
	Client   *http.Client
	CacheDir string
	// Assets are the manifest assets; the hook for component c unpacks the
	// asset named "<c>-media".
	Assets map[string]*config.Asset
}

// RegisterBuiltins adds the hooks referenced by the built-in manifest.
func RegisterBuiltins(r *Registry, media MediaOptions) {
	r.Register(WrapServer, &Hook{Fn: func(ctx context.Context, s Subject) error {
		return WrapServerBinary(ctx, filepath.Join(s.Prefix, "bin"), s.Component.Name)
	}})
	r.Register(FetchMedia, &Hook{Optional: true, Fn: func(ctx context.Context, s Subject) error {
		return fetchMedia(ctx, media, s)
	}})
}

// WrapServerBinary moves bin/<name> to bin/<name>.bin and writes a script in
// its place that puts the prefix's lib directory on LD_LIBRARY_PATH. It is
// safe to run again after a reinstall or when the wrapper is already there.
func WrapServerBinary(ctx context.Context, binDir, name string) error {
	bin := filepath.Join(binDir, name)
	wrapped := bin + ".bin"

	data, err := os.ReadFile(bin)
	switch {
	case err == nil && bytes.Contains(data, []byte(wrapperMarker)):
		if _, err := os.Stat(wrapped); err != nil {
			return fmt.Errorf("wrapper %s exists but %s is missing: %w", bin, wrapped, err)
		}
		ctxlog.FromContext(ctx).Debug("Server binary already wrapped.", "path", bin)
		return nil
	case err == nil:
		if err := os.Rename(bin, wrapped); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		if _, statErr := os.Stat(wrapped); statErr != nil {
			return fmt.Errorf("no installed binary %s: %w", bin, err)
		}
	default:
		return err
	}

	script := fmt.Sprintf(wrapperTemplate, wrapperMarker, name)
	if err := atomicwriter.WriteFile(bin, []byte(script), 0o755); err != nil {
		return fmt.Errorf("writing wrapper %s: %w", bin, err)
	}
	ctxlog.FromContext(ctx).Info("Wrapped server binary.", "path", bin)
	return nil
}

func fetchMedia(ctx context.Context, opts MediaOptions, s Subject) error {
	name := s.Component.Name + "-media"
	asset, ok := opts.Assets[name]
	if !ok {
		return fmt.Errorf("manifest defines no asset %q", name)
	}
	dest := filepath.Join(s.Prefix, filepath.FromSlash(asset.Dest))
	present, err := fsutil.HasEntries(dest)
	if err != nil {
		return err
	}
	if present {
		ctxlog.FromContext(ctx).Debug("Media already present.", "dest", dest)
		return nil
	}

	client := opts.Client
	if client == nil {
		client = fetch.NewClient(0)
	}
	archive, err := fetch.Download(ctx, client, asset.URL, opts.CacheDir)
	if err != nil {
		return err
	}
	return fetch.Extract(archive, dest, asset.StripComponents)
}
