package hooks

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/config"
)

func TestRegistry_Run(t *testing.T) {
	var ran []string
	r := New()
	r.Register("first", &Hook{Fn: func(context.Context, Subject) error {
		ran = append(ran, "first")
		return nil
	}})
	r.Register("flaky", &Hook{Optional: true, Fn: func(context.Context, Subject) error {
		ran = append(ran, "flaky")
		return errors.New("network unreachable")
	}})
	r.Register("broken", &Hook{Fn: func(context.Context, Subject) error {
		ran = append(ran, "broken")
		return errors.New("disk full")
	}})
	s := Subject{Component: component.Component{Name: "ember"}}

	require.NoError(t, r.Run(context.Background(), []string{"first", "flaky", "first"}, s))
	assert.Equal(t, []string{"first", "flaky", "first"}, ran, "optional failures do not stop later hooks")

	ran = nil
	err := r.Run(context.Background(), []string{"broken", "first"}, s)
	assert.ErrorContains(t, err, "hook broken for ember: disk full")
	assert.Equal(t, []string{"broken"}, ran)

	assert.ErrorContains(t, r.Run(context.Background(), []string{"nope"}, s), `unknown hook "nope"`)
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	r := New()
	r.Register("x", &Hook{})
	assert.Panics(t, func() { r.Register("x", &Hook{}) })
}

func TestRegistry_RegisterDoesNotLogGlobally(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	RegisterBuiltins(New(), MediaOptions{})

	assert.Empty(t, buf.String(), "registration output belongs to the app logger")
}

func TestRegistry_Validate(t *testing.T) {
	r := New()
	RegisterBuiltins(r, MediaOptions{})
	assert.Equal(t, []string{FetchMedia, WrapServer}, r.Names())

	ok := []component.Component{{Name: "cyphesis", Hooks: []string{WrapServer}}}
	require.NoError(t, r.Validate(ok))

	bad := []component.Component{{Name: "ember", Hooks: []string{"strip-symbols"}}}
	assert.ErrorContains(t, r.Validate(bad), `component ember: unknown hook "strip-symbols"`)
}

func TestWrapServerBinary(t *testing.T) {
	binDir := t.TempDir()
	bin := filepath.Join(binDir, "cyphesis")
	require.NoError(t, os.WriteFile(bin, []byte("\x7fELF server"), 0o755))
	ctx := context.Background()

	require.NoError(t, WrapServerBinary(ctx, binDir, "cyphesis"))

	wrapped, err := os.ReadFile(bin + ".bin")
	require.NoError(t, err)
	assert.Equal(t, "\x7fELF server", string(wrapped))
	script, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Contains(t, string(script), wrapperMarker)
	assert.Contains(t, string(script), `exec "$prefix/bin/cyphesis.bin" "$@"`)
	info, err := os.Stat(bin)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	t.Run("second run is a no-op", func(t *testing.T) {
		require.NoError(t, WrapServerBinary(ctx, binDir, "cyphesis"))
		wrapped, err := os.ReadFile(bin + ".bin")
		require.NoError(t, err)
		assert.Equal(t, "\x7fELF server", string(wrapped), "the wrapper must never replace the wrapped binary")
	})

	t.Run("reinstall is wrapped again", func(t *testing.T) {
		require.NoError(t, os.WriteFile(bin, []byte("\x7fELF server v2"), 0o755))
		require.NoError(t, WrapServerBinary(ctx, binDir, "cyphesis"))
		wrapped, err := os.ReadFile(bin + ".bin")
		require.NoError(t, err)
		assert.Equal(t, "\x7fELF server v2", string(wrapped))
	})
}

func TestWrapServerBinary_Missing(t *testing.T) {
	err := WrapServerBinary(context.Background(), t.TempDir(), "cyphesis")
	assert.ErrorContains(t, err, "no installed binary")
}

func mediaArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	body := []byte("material Ogre/Water {}")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "ember-media-0.7.2/materials/water.material", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestFetchMedia(t *testing.T) {
	archive := mediaArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ember-media.tar" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	defer srv.Close()

	prefix := t.TempDir()
	newRegistry := func(url string) *Registry {
		r := New()
		RegisterBuiltins(r, MediaOptions{
			Client:   srv.Client(),
			CacheDir: t.TempDir(),
			Assets: map[string]*config.Asset{
				"ember-media": {Name: "ember-media", URL: url, Dest: "share/ember/media", StripComponents: 1},
			},
		})
		return r
	}
	s := Subject{Component: component.Component{Name: "ember"}, Prefix: prefix}

	t.Run("unpacks into the prefix", func(t *testing.T) {
		require.NoError(t, newRegistry(srv.URL+"/ember-media.tar").Run(context.Background(), []string{FetchMedia}, s))
		assert.FileExists(t, filepath.Join(prefix, "share", "ember", "media", "materials", "water.material"))
	})

	t.Run("failure is only a warning", func(t *testing.T) {
		other := Subject{Component: component.Component{Name: "ember"}, Prefix: t.TempDir()}
		err := newRegistry(srv.URL+"/gone.tar").Run(context.Background(), []string{FetchMedia}, other)
		assert.NoError(t, err)
	})
}
