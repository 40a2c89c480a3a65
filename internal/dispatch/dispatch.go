// Package dispatch adapts the deletion engine's (name, id)-keyed entry
// points for external callers — the HTTP surface and the CLI — mapping
// an unknown object/edge name to a typed not-found error rather than a
// bare lookup failure.
package dispatch

import (
	"context"
	"errors"

	"github.com/mcmcgrath13/delf/internal/schema"
)

// ErrNotFound is returned when the requested object or edge name is not
// declared in the bound schema.
var ErrNotFound = errors.New("dispatch: object or edge type not found")

// engine is the subset of deletion.Engine the dispatcher calls.
type engine interface {
	DeleteObject(ctx context.Context, name, id string) error
	DeleteEdge(ctx context.Context, name, fromID, toID string) error
}

// Dispatcher is a thin request-facing adapter over a deletion engine
// and the graph it was built from — the graph is consulted only to
// translate an unknown type name into ErrNotFound before the engine
// is ever called.
type Dispatcher struct {
	graph  *schema.Graph
	engine engine
}

// New returns a Dispatcher bound to graph and engine.
func New(graph *schema.Graph, eng engine) *Dispatcher {
	return &Dispatcher{graph: graph, engine: eng}
}

// DeleteObject deletes the object instance identified by (objectType,
// id). Returns ErrNotFound if objectType is not declared.
func (d *Dispatcher) DeleteObject(ctx context.Context, objectType, id string) error {
	if d.graph.Object(objectType) == nil {
		return ErrNotFound
	}
	return d.engine.DeleteObject(ctx, objectType, id)
}

// DeleteEdge deletes the edge instance identified by (edgeType,
// fromID, toID). Returns ErrNotFound if edgeType is not declared.
func (d *Dispatcher) DeleteEdge(ctx context.Context, edgeType, fromID, toID string) error {
	if d.graph.Edge(edgeType) == nil {
		return ErrNotFound
	}
	return d.engine.DeleteEdge(ctx, edgeType, fromID, toID)
}
