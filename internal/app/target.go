package app

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/worldforge/hammer/internal/planner"
)

// NativeTarget builds for the machine hammer runs on.
const NativeTarget = "native"

// Target is a cross-compile target selectable with --target.
type Target struct {
	Name string
	OS   string
	Arch string
	// Host is the toolchain triplet; empty for native builds.
	Host string
}

var targets = map[string]Target{
	NativeTarget: {Name: NativeTarget, OS: runtime.GOOS, Arch: runtime.GOARCH},
	"win32":      {Name: "win32", OS: "windows", Arch: "386", Host: "i686-w64-mingw32"},
	"win64":      {Name: "win64", OS: "windows", Arch: "amd64", Host: "x86_64-w64-mingw32"},
}

// Targets lists the selectable target names, sorted.
func Targets() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTarget returns the named target.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown target %q (want one of %s)", name, strings.Join(Targets(), ", "))
	}
	return t, nil
}

// Cross reports whether t needs a cross toolchain.
func (t Target) Cross() bool {
	return t.Host != ""
}

// Variant is the build variant of t.
func (t Target) Variant(debug bool) planner.Variant {
	return planner.Variant{OS: t.OS, Arch: t.Arch, Debug: debug}
}
