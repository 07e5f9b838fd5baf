// Package release packages an installed Ember client either as an AppDir
// tree or as an AppImage.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/otiai10/copy"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
)

// Mode selects the release format.
type Mode string

const (
	Dir   Mode = "dir"
	Image Mode = "image"
)

// ParseMode validates a mode name. The empty string selects Image.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return Image, nil
	case Dir, Image:
		return m, nil
	}
	return "", fmt.Errorf("unknown release mode %q (want dir or image)", s)
}

const appRun = `#!/bin/sh
here="$(dirname "$(readlink -f "$0")")"
LD_LIBRARY_PATH="$here/usr/lib${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}"
export LD_LIBRARY_PATH
exec "$here/usr/bin/ember" "$@"
`

const desktopEntry = `[Desktop Entry]
Type=Application
Name=Ember
Comment=Worldforge 3D client
Exec=ember
Icon=ember
Categories=Game;
`

// iconPath is where the client installs its application icon, relative to
// the prefix.
const iconPath = "share/icons/hicolor/scalable/apps/ember.svg"

// Packager builds release artifacts under a release root.
type Packager struct {
	runner *phase.Runner
	root   string
	arch   string
}

// NewPackager creates a Packager. arch is the Go architecture name of the
// packaged binaries; runner executes appimagetool.
func NewPackager(runner *phase.Runner, releaseRoot, arch string) *Packager {
	return &Packager{runner: runner, root: releaseRoot, arch: arch}
}

// AppDir is the release tree for version.
func (p *Packager) AppDir(version string) string {
	return filepath.Join(p.root, "ember-"+version)
}

// ImagePath is the AppImage written for version.
func (p *Packager) ImagePath(version string) string {
	return filepath.Join(p.root, fmt.Sprintf("Ember-%s-%s.AppImage", version, appImageArch(p.arch)))
}

// Package copies the runtime files of prefix into a fresh AppDir and, in
// Image mode, turns it into an AppImage. It returns the artifact path.
func (p *Packager) Package(ctx context.Context, prefix, version string, mode Mode) (string, error) {
	logger := ctxlog.FromContext(ctx).With("version", version, "mode", string(mode))

	if _, err := os.Stat(filepath.Join(prefix, "bin", "ember")); err != nil {
		return "", fmt.Errorf("ember is not installed in %s: %w", prefix, err)
	}

	appDir := p.AppDir(version)
	if err := os.RemoveAll(appDir); err != nil {
		return "", err
	}
	logger.Info("Copying install tree.", "from", prefix, "to", appDir)
	opts := copy.Options{
		Skip:      skipDevelopmentFiles(prefix),
		OnSymlink: func(string) copy.SymlinkAction { return copy.Shallow },
	}
	if err := copy.Copy(prefix, filepath.Join(appDir, "usr"), opts); err != nil {
		return "", fmt.Errorf("copying %s: %w", prefix, err)
	}

	if err := atomicwriter.WriteFile(filepath.Join(appDir, "AppRun"), []byte(appRun), 0o755); err != nil {
		return "", err
	}
	if err := atomicwriter.WriteFile(filepath.Join(appDir, "ember.desktop"), []byte(desktopEntry), 0o644); err != nil {
		return "", err
	}
	icon := filepath.Join(prefix, filepath.FromSlash(iconPath))
	if _, err := os.Stat(icon); err == nil {
		if err := copy.Copy(icon, filepath.Join(appDir, "ember.svg")); err != nil {
			return "", err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if mode == Dir {
		logger.Info("Release tree ready.", "path", appDir)
		return appDir, nil
	}

	out := p.ImagePath(version)
	cmd := phase.Command{
		Program: "appimagetool",
		Args:    []string{appDir, out},
		Dir:     p.root,
		Env:     []string{"ARCH=" + appImageArch(p.arch)},
	}
	if err := p.runner.Run(ctx, "release", planner.Phase("appimage"), cmd); err != nil {
		return "", err
	}
	logger.Info("AppImage ready.", "path", out)
	return out, nil
}

// skipDevelopmentFiles leaves headers, static and libtool archives and
// pkg-config files out of the release.
func skipDevelopmentFiles(prefix string) func(os.FileInfo, string, string) (bool, error) {
	return func(info os.FileInfo, src, _ string) (bool, error) {
		rel, err := filepath.Rel(prefix, src)
		if err != nil {
			return false, err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			return rel == "include" || rel == "lib/pkgconfig" || rel == "share/aclocal", nil
		}
		return strings.HasSuffix(rel, ".la") || strings.HasSuffix(rel, ".a"), nil
	}
}

func appImageArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	}
	return goarch
}
