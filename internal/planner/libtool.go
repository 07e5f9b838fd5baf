package planner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/moby/sys/atomicwriter"
)

// sysrootMarker matches libtool's "=" sysroot prefix in front of an
// absolute path, optionally after -L.
var sysrootMarker = regexp.MustCompile(`(\s|')(-L)?=/`)

var dependencyLibs = []byte("dependency_libs=")

// FixLibtoolArchives strips the sysroot marker from the dependency_libs of
// every .la file in libDir. Some libtool versions write "=/prefix/lib/x.la"
// where a plain absolute path is needed, which breaks later links. Files
// already fixed are left untouched. It returns the files it rewrote.
func FixLibtoolArchives(libDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(libDir, "*.la"))
	if err != nil {
		return nil, err
	}

	var fixed []string
	for _, path := range matches {
		changed, err := fixLibtoolArchive(path)
		if err != nil {
			return fixed, err
		}
		if changed {
			fixed = append(fixed, path)
		}
	}
	return fixed, nil
}

func fixLibtoolArchive(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	lines := bytes.Split(data, []byte("\n"))
	changed := false
	for i, line := range lines {
		if !bytes.HasPrefix(line, dependencyLibs) {
			continue
		}
		out := sysrootMarker.ReplaceAll(line, []byte("${1}${2}/"))
		if !bytes.Equal(out, line) {
			lines[i] = out
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	if err := atomicwriter.WriteFile(path, bytes.Join(lines, []byte("\n")), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("rewriting %s: %w", path, err)
	}
	return true, nil
}
