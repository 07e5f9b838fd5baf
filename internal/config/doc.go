// Package config defines the format-agnostic manifest model: the components
// hammer can build, the pinned release tables, the named targets, the
// third-party dependencies and the downloadable assets. It also defines the
// Loader interface implemented by the hcl package.
//
// The Model is validated once after loading and is read-only afterwards.
package config
