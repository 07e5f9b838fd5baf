// Package sourcesync keeps a component's git working copy at the revision
// the version table resolved for it.
//
// A missing working copy is cloned directly at the revision. An existing one
// is fetched and rebased onto the revision; uncommitted changes abort the
// update unless the syncer stashes them first.
package sourcesync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
)

// DefaultBaseURL is the host component repositories are cloned from.
const DefaultBaseURL = "https://github.com"

// Result says what Sync did to the working copy.
type Result int

const (
	// Skipped means the component borrows another component's working copy.
	Skipped Result = iota
	Cloned
	Updated
)

func (r Result) String() string {
	switch r {
	case Cloned:
		return "cloned"
	case Updated:
		return "updated"
	default:
		return "skipped"
	}
}

// SyncError reports a git operation that failed for a component.
type SyncError struct {
	Component string
	Revision  string
	Op        string
	LogPath   string
	Err       error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s of %s at %s failed", e.Op, e.Component, e.Revision)
	if e.Op == "rebase" {
		msg += "; resolve the conflict in the working copy and run checkout again"
	}
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (see %s)", e.LogPath)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Locator returns the working-copy directory of a component.
type Locator interface {
	SourceDir(c component.Component) string
}

// Options tune a Syncer.
type Options struct {
	// AlwaysStash stashes local modifications instead of failing on them.
	AlwaysStash bool
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// Env is the environment every git process receives.
	Env []string
}

// Syncer runs git through an Executor.
type Syncer struct {
	executor phase.Executor
	probe    planner.Probe
	locator  Locator
	logRoot  string
	opts     Options
}

// New creates a Syncer writing per-component logs under logRoot.
func New(executor phase.Executor, probe planner.Probe, locator Locator, logRoot string, opts Options) *Syncer {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Syncer{executor: executor, probe: probe, locator: locator, logRoot: logRoot, opts: opts}
}

// RemoteURL is the clone URL for a repository of owner.
func (s *Syncer) RemoteURL(owner, repo string) string {
	return strings.TrimSuffix(s.opts.BaseURL, "/") + "/" + owner + "/" + repo + ".git"
}

// LogPath is the checkout log of c.
func (s *Syncer) LogPath(c component.Component) string {
	return filepath.Join(s.logRoot, c.DisplayName(), "checkout.log")
}

// Sync brings the working copy of c to revision, fetching from owner's
// repository. Running it twice without remote changes leaves the working
// copy untouched the second time.
func (s *Syncer) Sync(ctx context.Context, c component.Component, owner, revision string) (Result, error) {
	logger := ctxlog.FromContext(ctx).With("component", c.Name, "revision", revision)
	if c.SharesSource() {
		logger.Debug("Component borrows a working copy; nothing to sync.", "source", c.Source)
		return Skipped, nil
	}
	if owner == "" {
		owner = c.OwnerName()
	}

	logPath := s.LogPath(c)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return Skipped, err
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return Skipped, err
	}
	defer logFile.Close()

	run := &gitRun{
		s:        s,
		ctx:      ctx,
		log:      logFile,
		comp:     c.Name,
		revision: revision,
		logPath:  logPath,
	}

	srcDir := s.locator.SourceDir(c)
	url := s.RemoteURL(owner, c.RepoName())

	hasCopy, err := s.probe.Exists(filepath.Join(srcDir, ".git"))
	if err != nil {
		return Skipped, fmt.Errorf("checking working copy of %s: %w", c.Name, err)
	}

	if !hasCopy {
		logger.Info("Cloning repository.", "url", url, "dir", srcDir)
		if err := os.MkdirAll(filepath.Dir(srcDir), 0o755); err != nil {
			return Skipped, err
		}
		if _, err := run.git("clone", filepath.Dir(srcDir), "clone", "--branch", revision, url, srcDir); err != nil {
			return Skipped, err
		}
		return Cloned, nil
	}

	logger.Info("Updating working copy.", "url", url, "dir", srcDir)
	// Untracked files (autogen output among them) never block a rebase.
	status, err := run.git("status", srcDir, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return Skipped, err
	}
	if strings.TrimSpace(status) != "" {
		if !s.opts.AlwaysStash {
			return Skipped, run.fail("status", fmt.Errorf("local modifications in %s", srcDir))
		}
		logger.Warn("Stashing local modifications.", "dir", srcDir)
		if _, err := run.git("stash", srcDir, "stash"); err != nil {
			return Skipped, err
		}
	}

	if _, err := run.git("set-url", srcDir, "remote", "set-url", "origin", url); err != nil {
		return Skipped, err
	}
	if _, err := run.git("fetch", srcDir, "fetch", "--tags", "origin"); err != nil {
		return Skipped, err
	}

	// Branches move, so rebase onto the remote-tracking ref; tags do not
	// have one and are used as is.
	onto := revision
	if _, err := run.git("show-ref", srcDir, "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+revision); err == nil {
		onto = "origin/" + revision
	}
	if _, err := run.git("rebase", srcDir, "rebase", onto); err != nil {
		return Skipped, err
	}
	return Updated, nil
}

// gitRun carries the state shared by the git invocations of one Sync.
type gitRun struct {
	s        *Syncer
	ctx      context.Context
	log      io.Writer
	comp     string
	revision string
	logPath  string
}

func (r *gitRun) fail(op string, err error) error {
	return &SyncError{Component: r.comp, Revision: r.revision, Op: op, LogPath: r.logPath, Err: err}
}

// git runs one git command in dir and returns its stdout. Output is also
// copied to the checkout log. show-ref failures are expected and not
// wrapped as SyncError.
func (r *gitRun) git(op, dir string, args ...string) (string, error) {
	cmd := phase.Command{Program: "git", Args: args, Dir: dir, Env: slices.Clone(r.s.opts.Env)}
	fmt.Fprintf(r.log, "# %s\n", cmd)

	var stdout bytes.Buffer
	err := r.s.executor.Execute(r.ctx, cmd, io.MultiWriter(&stdout, r.log), r.log)
	if err != nil {
		if op == "show-ref" {
			return "", err
		}
		return "", r.fail(op, err)
	}
	return stdout.String(), nil
}
