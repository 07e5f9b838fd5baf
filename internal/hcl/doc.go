// Package hcl provides the concrete HCL implementation of config.Loader. It
// parses the built-in manifest embedded in the binary followed by any user
// manifests, translates the HCL blocks into the config model and merges
// them: a later block with the same label replaces an earlier one.
package hcl
