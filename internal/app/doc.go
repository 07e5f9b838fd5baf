// Package app contains the core application logic. It wires the manifest,
// version table, source sync, planner and phase runner together behind one
// method per user command, decoupled from any specific entrypoint like a
// CLI.
package app
