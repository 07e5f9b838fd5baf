package fetch

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Extract unpacks the tar archive at archivePath into dest, dropping the
// first strip path elements of every entry. The compression is chosen from
// the file name: .tar.gz/.tgz, .tar.xz/.txz, .tar.bz2/.tbz2 or plain .tar.
func Extract(archivePath, dest string, strip int) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompressor(archivePath, bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("opening %s: %w", archivePath, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := untar(r, dest, strip); err != nil {
		return fmt.Errorf("extracting %s: %w", archivePath, err)
	}
	return nil
}

func decompressor(name string, r io.Reader) (io.Reader, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return xz.NewReader(r)
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return bzip2.NewReader(r), nil
	case strings.HasSuffix(lower, ".tar"):
		return r, nil
	}
	return nil, fmt.Errorf("unsupported archive type")
}

func untar(r io.Reader, dest string, strip int) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name, ok := stripPath(hdr.Name, strip)
		if !ok {
			continue
		}
		target := filepath.Join(dest, name)
		if !within(dest, target) {
			return fmt.Errorf("entry %q escapes the destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !within(dest, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
				return fmt.Errorf("symlink %q points outside the destination", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			linkName, ok := stripPath(hdr.Linkname, strip)
			if !ok {
				return fmt.Errorf("hard link %q target stripped away", hdr.Name)
			}
			src := filepath.Join(dest, linkName)
			if !within(dest, src) {
				return fmt.Errorf("hard link %q points outside the destination", hdr.Name)
			}
			os.Remove(target)
			if err := os.Link(src, target); err != nil {
				return err
			}
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stripPath removes the first n elements of a slash-separated archive path.
// It reports false when nothing is left.
func stripPath(name string, n int) (string, bool) {
	parts := strings.Split(strings.Trim(filepath.ToSlash(name), "/"), "/")
	if len(parts) <= n {
		return "", false
	}
	rest := strings.Join(parts[n:], "/")
	if rest == "" || rest == "." {
		return "", false
	}
	return filepath.FromSlash(rest), true
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
