package planner

import (
	"errors"
	"io/fs"
	"os"
)

// Probe answers whether a path exists. It is the only way the planner
// touches the filesystem.
type Probe interface {
	Exists(path string) (bool, error)
}

// OSProbe reads the real filesystem.
type OSProbe struct{}

// Exists implements Probe.
func (OSProbe) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// SetProbe is an in-memory Probe holding a fixed set of paths.
type SetProbe map[string]bool

// Exists implements Probe.
func (s SetProbe) Exists(path string) (bool, error) {
	return s[path], nil
}
