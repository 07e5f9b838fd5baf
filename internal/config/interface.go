package config

import "context"

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// Load reads the built-in manifest followed by the given paths, merges
	// them in order and returns the validated model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
