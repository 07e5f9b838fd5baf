package app

import (
	"fmt"
	"strings"

	"github.com/worldforge/hammer/internal/version"
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Config holds everything an App needs for one invocation. It is built once
// from the command line and never changed afterwards.
type Config struct {
	WorkDir string
	Target  string // cross-compile target, see Targets
	Debug   bool

	// Flag bundles, split on whitespace before use.
	MakeFlags      string
	ConfigureFlags string
	CMakeFlags     string
	CompileFlags   string
	LinkFlags      string
	Jobs           int

	ForceAutogen   bool
	ForceConfigure bool

	UseReleaseLibs bool
	UseRelease     []string // name=revision
	Owners         []string // name=owner
	AlwaysStash    bool

	// Manifests are merged over the built-in manifest, in order.
	Manifests []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy with defaults filled in.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkDir == "" {
		return nil, &ConfigError{Field: "workdir", Msg: "must not be empty"}
	}
	if cfg.Target == "" {
		cfg.Target = NativeTarget
	}
	if _, err := LookupTarget(cfg.Target); err != nil {
		return nil, &ConfigError{Field: "target", Msg: err.Error()}
	}
	if cfg.Jobs < 0 {
		return nil, &ConfigError{Field: "jobs", Msg: "must not be negative"}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ConfigError{Field: "log level", Msg: fmt.Sprintf("%q is not one of debug, info, warn, error", cfg.LogLevel)}
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "auto"
	}
	switch cfg.LogFormat {
	case "auto", "text", "json":
	default:
		return nil, &ConfigError{Field: "log format", Msg: fmt.Sprintf("%q is not one of auto, text, json", cfg.LogFormat)}
	}

	if _, err := version.ParseOverrides(cfg.UseRelease); err != nil {
		return nil, &ConfigError{Field: "use-release", Msg: err.Error()}
	}
	if _, err := version.ParseOverrides(cfg.Owners); err != nil {
		return nil, &ConfigError{Field: "owner", Msg: err.Error()}
	}
	return &cfg, nil
}

func fields(s string) []string {
	return strings.Fields(s)
}
