// Package workspace lays out the directories hammer works in and builds
// the environment handed to every child process.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/planner"
)

// Layout holds the concrete paths for one invocation.
type Layout struct {
	Root        string
	Prefix      string // install prefix, one per variant
	SourceRoot  string
	BuildRoot   string
	LogRoot     string
	CacheRoot   string
	ReleaseRoot string
	Variant     planner.Variant
}

// Setup derives the Layout for workDir and variant. workDir is made
// absolute so commands running in other directories see the same paths.
func Setup(workDir string, v planner.Variant) (Layout, error) {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving work dir %q: %w", workDir, err)
	}
	return Layout{
		Root:        root,
		Prefix:      filepath.Join(root, "local", v.Name()),
		SourceRoot:  filepath.Join(root, "src"),
		BuildRoot:   filepath.Join(root, "build"),
		LogRoot:     filepath.Join(root, "logs"),
		CacheRoot:   filepath.Join(root, "cache"),
		ReleaseRoot: filepath.Join(root, "release"),
		Variant:     v,
	}, nil
}

// VariantName is the build-variant directory name.
func (l Layout) VariantName() string {
	return l.Variant.Name()
}

// SourceDir is the working copy of c.
func (l Layout) SourceDir(c component.Component) string {
	return filepath.Join(l.SourceRoot, filepath.FromSlash(c.Path))
}

// BuildDir is the out-of-tree build directory of c for variant v.
// Components sharing a working copy get a directory of their own.
func (l Layout) BuildDir(c component.Component, v planner.Variant) string {
	dir := v.Name()
	if c.SharesSource() {
		dir += "-" + c.Name
	}
	return filepath.Join(l.BuildRoot, filepath.FromSlash(c.Path), dir)
}

// LibDir is where installed libraries and libtool archives live.
func (l Layout) LibDir() string {
	return filepath.Join(l.Prefix, "lib")
}

// Ensure creates the top-level directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Prefix, l.SourceRoot, l.BuildRoot, l.LogRoot, l.CacheRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// EnvOptions are the flag bundles exported to child processes.
type EnvOptions struct {
	CompileFlags string
	LinkFlags    string
	Cross        bool
}

// Env returns base with the prefix wired into the search paths and the
// flag bundles exported.
func (l Layout) Env(base []string, opts EnvOptions) []string {
	env := newEnviron(base)
	bin := filepath.Join(l.Prefix, "bin")
	lib := l.LibDir()
	pkgconfig := strings.Join([]string{
		filepath.Join(lib, "pkgconfig"),
		filepath.Join(l.Prefix, "share", "pkgconfig"),
	}, string(os.PathListSeparator))

	env.prepend("PATH", bin)
	env.prepend("LD_LIBRARY_PATH", lib)
	if opts.Cross {
		// Host .pc files must not leak into a cross build.
		env.set("PKG_CONFIG_LIBDIR", pkgconfig)
		env.set("PKG_CONFIG_PATH", pkgconfig)
	} else {
		env.prepend("PKG_CONFIG_PATH", pkgconfig)
	}
	env.set("ACLOCAL_ARGS", "-I "+filepath.Join(l.Prefix, "share", "aclocal"))
	env.set("CPPFLAGS", join("-I"+filepath.Join(l.Prefix, "include"), env.get("CPPFLAGS")))
	env.set("LDFLAGS", join("-L"+lib, env.get("LDFLAGS"), opts.LinkFlags))
	if opts.CompileFlags != "" {
		env.set("CFLAGS", opts.CompileFlags)
		env.set("CXXFLAGS", opts.CompileFlags)
	}
	return env.list()
}

func join(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// environ is an ordered KEY=VALUE list with in-place updates.
type environ struct {
	keys   []string
	values map[string]string
}

func newEnviron(base []string) *environ {
	e := &environ{values: make(map[string]string, len(base))}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		e.set(k, v)
	}
	return e
}

func (e *environ) get(k string) string {
	return e.values[k]
}

func (e *environ) set(k, v string) {
	if _, ok := e.values[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.values[k] = v
}

func (e *environ) prepend(k, v string) {
	if old := e.values[k]; old != "" {
		v = v + string(os.PathListSeparator) + old
	}
	e.set(k, v)
}

func (e *environ) list() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+"="+e.values[k])
	}
	return out
}
