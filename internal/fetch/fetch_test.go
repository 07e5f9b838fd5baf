package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name, body, link string
	typ              byte
}

func tarball(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Typeflag: e.typ, Mode: 0o644, Linkname: e.link}
		switch e.typ {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typ == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func compress(t *testing.T, data []byte, newWriter func(io.Writer) (io.WriteCloser, error)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

var sourceTree = []entry{
	{name: "CEGUI-0.7.9/", typ: tar.TypeDir},
	{name: "CEGUI-0.7.9/configure.ac", body: "AC_INIT", typ: tar.TypeReg},
	{name: "CEGUI-0.7.9/cegui/src/Base.cpp", body: "int x;", typ: tar.TypeReg},
	{name: "CEGUI-0.7.9/README", link: "cegui/src/Base.cpp", typ: tar.TypeSymlink},
}

func TestExtract(t *testing.T) {
	raw := tarball(t, sourceTree)
	testCases := []struct {
		name string
		file string
		data []byte
	}{
		{"plain", "cegui.tar", raw},
		{"gzip", "cegui.tar.gz", compress(t, raw, func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil })},
		{"xz", "cegui.tar.xz", compress(t, raw, func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) })},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, tc.file)
			require.NoError(t, os.WriteFile(archive, tc.data, 0o644))
			dest := filepath.Join(dir, "out")

			require.NoError(t, Extract(archive, dest, 1))

			got, err := os.ReadFile(filepath.Join(dest, "cegui", "src", "Base.cpp"))
			require.NoError(t, err)
			assert.Equal(t, "int x;", string(got))
			assert.FileExists(t, filepath.Join(dest, "configure.ac"))
			link, err := os.Readlink(filepath.Join(dest, "README"))
			require.NoError(t, err)
			assert.Equal(t, "cegui/src/Base.cpp", link)
		})
	}
}

func TestExtract_NoStrip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "cegui.tar")
	require.NoError(t, os.WriteFile(archive, tarball(t, sourceTree), 0o644))

	require.NoError(t, Extract(archive, filepath.Join(dir, "out"), 0))
	assert.FileExists(t, filepath.Join(dir, "out", "CEGUI-0.7.9", "configure.ac"))
}

func TestExtract_Rejects(t *testing.T) {
	testCases := []struct {
		name    string
		entries []entry
		wantErr string
	}{
		{
			name:    "path traversal",
			entries: []entry{{name: "pkg/../../evil", body: "x", typ: tar.TypeReg}},
			wantErr: "escapes the destination",
		},
		{
			name:    "absolute symlink",
			entries: []entry{{name: "pkg/passwd", link: "/etc/passwd", typ: tar.TypeSymlink}},
			wantErr: "points outside",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "bad.tar")
			require.NoError(t, os.WriteFile(archive, tarball(t, tc.entries), 0o644))

			err := Extract(archive, filepath.Join(dir, "out"), 1)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "cegui.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK"), 0o644))
	assert.ErrorContains(t, Extract(archive, dir, 0), "unsupported archive type")
}

func TestDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.tar.gz" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "archive bytes")
	}))
	defer srv.Close()
	cache := t.TempDir()
	ctx := context.Background()

	t.Run("downloads into the cache", func(t *testing.T) {
		path, err := Download(ctx, srv.Client(), srv.URL+"/dl/ogre-1.9.0.tar.gz", cache)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cache, "ogre-1.9.0.tar.gz"), path)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "archive bytes", string(got))
	})

	t.Run("reuses a cached file", func(t *testing.T) {
		before := hits.Load()
		_, err := Download(ctx, srv.Client(), srv.URL+"/other/ogre-1.9.0.tar.gz", cache)
		require.NoError(t, err)
		assert.Equal(t, before, hits.Load())
	})

	t.Run("http error leaves no file", func(t *testing.T) {
		_, err := Download(ctx, srv.Client(), srv.URL+"/missing.tar.gz", cache)
		assert.ErrorContains(t, err, "404")
		assert.NoFileExists(t, filepath.Join(cache, "missing.tar.gz"))
		matches, _ := filepath.Glob(filepath.Join(cache, "*.part-*"))
		assert.Empty(t, matches)
	})
}

func TestCachePath(t *testing.T) {
	p, err := CachePath("/cache", "https://downloads.sourceforge.net/crayzedsgui/CEGUI-0.7.9.tar.gz?use_mirror=auto")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "CEGUI-0.7.9.tar.gz"), p)

	_, err = CachePath("/cache", "https://example.org/")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewClient(0).Timeout)
}
