package dag

// Graph is a collection of nodes and their dependencies, representing a DAG.
// It is built once while a manifest is validated and read afterwards, so it
// carries no locking.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by component name.
	nodes map[string]*node
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	id string
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}
