// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates global flags into an app.Config and each subcommand into one
// call on a Runner.
package cli
