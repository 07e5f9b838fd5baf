package sourcesync_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
	"github.com/worldforge/hammer/internal/sourcesync"
	"github.com/worldforge/hammer/internal/testutil"
)

type rootLocator string

func (r rootLocator) SourceDir(c component.Component) string {
	return filepath.Join(string(r), c.Path)
}

var atlas = component.Component{Name: "atlas-cpp", Path: "libs/atlas-cpp", BuildSystem: component.Autotools}

// newSyncer wires a Syncer to a fake git. existing marks the working copies
// that already have a .git directory.
func newSyncer(t *testing.T, exec *testutil.FakeExecutor, alwaysStash bool, existing ...component.Component) (*sourcesync.Syncer, string) {
	t.Helper()
	root := t.TempDir()
	loc := rootLocator(filepath.Join(root, "src"))
	probe := planner.SetProbe{}
	for _, c := range existing {
		probe[filepath.Join(loc.SourceDir(c), ".git")] = true
	}
	s := sourcesync.New(exec, probe, loc, filepath.Join(root, "logs"), sourcesync.Options{AlwaysStash: alwaysStash})
	return s, root
}

// fakeGit answers git status with the given porcelain output and treats
// branches as the refs that exist on the remote.
func fakeGit(porcelain string, branches ...string) func(phase.Command, io.Writer) error {
	return func(cmd phase.Command, stdout io.Writer) error {
		switch cmd.Args[0] {
		case "status":
			out := porcelain
			if slices.Contains(cmd.Args, "--untracked-files=no") {
				var kept []string
				for _, line := range strings.SplitAfter(porcelain, "\n") {
					if !strings.HasPrefix(line, "??") {
						kept = append(kept, line)
					}
				}
				out = strings.Join(kept, "")
			}
			_, err := io.WriteString(stdout, out)
			return err
		case "show-ref":
			ref := cmd.Args[len(cmd.Args)-1]
			for _, b := range branches {
				if ref == "refs/remotes/origin/"+b {
					return nil
				}
			}
			return errors.New("exit status 1")
		}
		return nil
	}
}

func TestSync_ClonesMissingWorkingCopy(t *testing.T) {
	// --- Arrange ---
	exec := &testutil.FakeExecutor{}
	s, root := newSyncer(t, exec, false)

	// --- Act ---
	res, err := s.Sync(context.Background(), atlas, "worldforge", "0.6.3")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, sourcesync.Cloned, res)
	src := filepath.Join(root, "src", "libs", "atlas-cpp")
	want := []string{"git clone --branch 0.6.3 https://github.com/worldforge/atlas-cpp.git " + src}
	if diff := cmp.Diff(want, exec.Lines()); diff != "" {
		t.Errorf("git commands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filepath.Dir(src), exec.Calls()[0].Dir)

	log, err := os.ReadFile(s.LogPath(atlas))
	require.NoError(t, err)
	assert.Contains(t, string(log), "# git clone --branch 0.6.3")
}

func TestSync_UpdatesBranch(t *testing.T) {
	exec := &testutil.FakeExecutor{Handler: fakeGit("", "master")}
	s, _ := newSyncer(t, exec, false, atlas)

	res, err := s.Sync(context.Background(), atlas, "myfork", "master")

	require.NoError(t, err)
	assert.Equal(t, sourcesync.Updated, res)
	want := []string{
		"git status --porcelain --untracked-files=no",
		"git remote set-url origin https://github.com/myfork/atlas-cpp.git",
		"git fetch --tags origin",
		"git show-ref --verify --quiet refs/remotes/origin/master",
		"git rebase origin/master",
	}
	if diff := cmp.Diff(want, exec.Lines()); diff != "" {
		t.Errorf("git commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_UpdatesTag(t *testing.T) {
	exec := &testutil.FakeExecutor{Handler: fakeGit("", "master")}
	s, _ := newSyncer(t, exec, false, atlas)

	_, err := s.Sync(context.Background(), atlas, "", "0.6.3")

	require.NoError(t, err)
	assert.Equal(t, []string{"git rebase 0.6.3"}, exec.LinesWithPrefix("git rebase"))
	assert.Contains(t, exec.Lines(), "git remote set-url origin https://github.com/worldforge/atlas-cpp.git",
		"empty owner falls back to the component owner")
}

func TestSync_SecondRunIsNonDestructive(t *testing.T) {
	exec := &testutil.FakeExecutor{Handler: fakeGit("", "master")}
	s, _ := newSyncer(t, exec, true, atlas)

	_, err := s.Sync(context.Background(), atlas, "worldforge", "master")
	require.NoError(t, err)
	first := exec.Lines()
	exec.Reset()
	_, err = s.Sync(context.Background(), atlas, "worldforge", "master")
	require.NoError(t, err)

	assert.Equal(t, first, exec.Lines())
	assert.Empty(t, exec.LinesWithPrefix("git stash"), "a clean working copy is never stashed")
	assert.Empty(t, exec.LinesWithPrefix("git clone"))
}

func TestSync_LocalModifications(t *testing.T) {
	t.Run("fatal without always-stash", func(t *testing.T) {
		exec := &testutil.FakeExecutor{Handler: fakeGit(" M src/Atlas/Codec.cpp\n", "master")}
		s, _ := newSyncer(t, exec, false, atlas)

		_, err := s.Sync(context.Background(), atlas, "worldforge", "master")

		var syncErr *sourcesync.SyncError
		require.ErrorAs(t, err, &syncErr)
		assert.Equal(t, "atlas-cpp", syncErr.Component)
		assert.Equal(t, "master", syncErr.Revision)
		assert.ErrorContains(t, err, "local modifications")
		assert.Equal(t, []string{"git status --porcelain --untracked-files=no"}, exec.Lines(), "nothing runs after the check")
	})

	t.Run("stashed with always-stash", func(t *testing.T) {
		exec := &testutil.FakeExecutor{Handler: fakeGit(" M src/Atlas/Codec.cpp\n", "master")}
		s, _ := newSyncer(t, exec, true, atlas)

		res, err := s.Sync(context.Background(), atlas, "worldforge", "master")

		require.NoError(t, err)
		assert.Equal(t, sourcesync.Updated, res)
		lines := exec.Lines()
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Equal(t, "git stash", lines[1])
	})

	t.Run("untracked files are ignored", func(t *testing.T) {
		for _, stash := range []bool{false, true} {
			exec := &testutil.FakeExecutor{Handler: fakeGit("?? autom4te.cache/\n?? configure\n", "master")}
			s, _ := newSyncer(t, exec, stash, atlas)

			res, err := s.Sync(context.Background(), atlas, "worldforge", "master")

			require.NoError(t, err)
			assert.Equal(t, sourcesync.Updated, res)
			assert.Empty(t, exec.LinesWithPrefix("git stash"), "always-stash=%v", stash)
			assert.Equal(t, []string{"git rebase origin/master"}, exec.LinesWithPrefix("git rebase"))
		}
	})
}

func TestSync_RebaseConflict(t *testing.T) {
	base := fakeGit("", "master")
	exec := &testutil.FakeExecutor{Handler: func(cmd phase.Command, stdout io.Writer) error {
		if cmd.Args[0] == "rebase" {
			io.WriteString(stdout, "CONFLICT (content): Merge conflict in Makefile.am\n")
			return errors.New("exit status 1")
		}
		return base(cmd, stdout)
	}}
	s, _ := newSyncer(t, exec, false, atlas)

	_, err := s.Sync(context.Background(), atlas, "worldforge", "master")

	var syncErr *sourcesync.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "rebase", syncErr.Op)
	assert.Contains(t, err.Error(), "rebase of atlas-cpp at master failed")
	assert.Contains(t, err.Error(), "resolve the conflict")
	assert.Contains(t, err.Error(), s.LogPath(atlas))

	log, readErr := os.ReadFile(s.LogPath(atlas))
	require.NoError(t, readErr)
	assert.True(t, strings.Contains(string(log), "Merge conflict"), "git output is kept in the log")
}

func TestSync_CloneFailureIsFatal(t *testing.T) {
	exec := &testutil.FakeExecutor{Handler: func(phase.Command, io.Writer) error {
		return errors.New("fatal: Remote branch 9.9.9 not found")
	}}
	s, _ := newSyncer(t, exec, false)

	_, err := s.Sync(context.Background(), atlas, "worldforge", "9.9.9")

	var syncErr *sourcesync.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "clone", syncErr.Op)
	assert.ErrorContains(t, err, "Remote branch 9.9.9 not found")
}

func TestSync_SharedSourceIsSkipped(t *testing.T) {
	exec := &testutil.FakeExecutor{}
	s, _ := newSyncer(t, exec, false)
	web := component.Component{Name: "webember-client", Path: "clients/ember", Source: "ember"}

	res, err := s.Sync(context.Background(), web, "worldforge", "master")

	require.NoError(t, err)
	assert.Equal(t, sourcesync.Skipped, res)
	assert.Empty(t, exec.Calls())
}

func TestRemoteURL(t *testing.T) {
	s := sourcesync.New(&testutil.FakeExecutor{}, planner.SetProbe{}, rootLocator("/src"), "/logs",
		sourcesync.Options{BaseURL: "https://git.example.org/"})
	assert.Equal(t, "https://git.example.org/worldforge/eris.git", s.RemoteURL("worldforge", "eris"))
}
