package phase

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/planner"
)

// Flags are the user-supplied flag bundles forwarded to the build tools.
type Flags struct {
	Prefix    string
	Host      string // cross-compile triplet, empty for native builds
	Debug     bool
	Jobs      int
	Make      []string
	Configure []string
	CMake     []string
}

// Recipe turns planned phases into commands for one component.
type Recipe struct {
	Component component.Component
	SourceDir string
	BuildDir  string
	Flags     Flags
	// ExtraMake is appended to the build phase's make arguments.
	ExtraMake []string
}

// Command returns the command for phase p.
func (r Recipe) Command(p planner.Phase) (Command, error) {
	switch r.Component.BuildSystem {
	case component.Autotools:
		return r.autotools(p)
	case component.CMake:
		return r.cmake(p)
	}
	return Command{}, fmt.Errorf("no %s command for %s build system %q", p, r.Component.Name, r.Component.BuildSystem)
}

func (r Recipe) autotools(p planner.Phase) (Command, error) {
	switch p {
	case planner.Autogen:
		return Command{Program: "./autogen.sh", Dir: r.SourceDir}, nil
	case planner.Configure:
		args := []string{"--prefix=" + r.Flags.Prefix}
		if r.Flags.Host != "" {
			args = append(args, "--host="+r.Flags.Host)
		}
		if r.Flags.Debug {
			args = append(args, "--enable-debug")
		}
		args = append(args, r.Component.ConfigureFlags...)
		args = append(args, r.Flags.Configure...)
		return Command{Program: filepath.Join(r.SourceDir, "configure"), Args: args, Dir: r.BuildDir}, nil
	}
	return r.make(p)
}

func (r Recipe) cmake(p planner.Phase) (Command, error) {
	switch p {
	case planner.Autogen:
		return Command{}, fmt.Errorf("%s uses cmake and has no autogen phase", r.Component.Name)
	case planner.Configure:
		buildType := "Release"
		if r.Flags.Debug {
			buildType = "Debug"
		}
		args := []string{
			r.SourceDir,
			"-DCMAKE_INSTALL_PREFIX=" + r.Flags.Prefix,
			"-DCMAKE_BUILD_TYPE=" + buildType,
		}
		if r.Flags.Host != "" {
			args = append(args,
				"-DCMAKE_SYSTEM_NAME="+cmakeSystemName(r.Flags.Host),
				"-DCMAKE_C_COMPILER="+r.Flags.Host+"-gcc",
				"-DCMAKE_CXX_COMPILER="+r.Flags.Host+"-g++",
				"-DCMAKE_FIND_ROOT_PATH="+r.Flags.Prefix,
			)
		}
		args = append(args, r.Component.CMakeFlags...)
		args = append(args, r.Flags.CMake...)
		return Command{Program: "cmake", Args: args, Dir: r.BuildDir}, nil
	}
	return r.make(p)
}

func (r Recipe) make(p planner.Phase) (Command, error) {
	switch p {
	case planner.Build:
		var args []string
		if r.Flags.Jobs > 0 {
			args = append(args, "-j"+strconv.Itoa(r.Flags.Jobs))
		}
		args = append(args, r.Flags.Make...)
		args = append(args, r.ExtraMake...)
		return Command{Program: "make", Args: args, Dir: r.BuildDir}, nil
	case planner.Install:
		return Command{Program: "make", Args: []string{"install"}, Dir: r.BuildDir}, nil
	}
	return Command{}, fmt.Errorf("unknown phase %q", p)
}

func cmakeSystemName(host string) string {
	switch {
	case strings.Contains(host, "mingw"):
		return "Windows"
	case strings.Contains(host, "apple"):
		return "Darwin"
	}
	return "Linux"
}
