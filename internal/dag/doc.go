// Package dag models the link-time dependencies between components. The
// manifest loader uses it to reject dependency cycles and to check that
// every target lists a component only after the components it links
// against.
package dag
