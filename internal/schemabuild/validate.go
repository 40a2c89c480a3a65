package schemabuild

import (
	"context"
	"sort"

	"github.com/mcmcgrath13/delf/internal/schema"
)

// Validate runs the storage-content and reachability passes over g
// that Build cannot perform on its own (spec.md §7.2): every object's
// storage confirms the object, every edge's target storage confirms
// the edge, every by_x_only set names a real inbound edge, and every
// object is reachable via deep/refcount edges from some
// directly/directly_only/short_ttl/not_deleted root. Reference
// resolution (undeclared object, undeclared inverse, unbound storage)
// is already fatal at Build time and never reaches Validate.
//
// Validate returns the first error encountered; callers that want every
// diagnostic at once should inspect individual objects/edges themselves.
func Validate(ctx context.Context, g *schema.Graph) error {
	if err := checkReferences(g); err != nil {
		return err
	}

	for _, name := range g.Objects() {
		obj := g.Object(name)
		backend := g.Storage(obj.Storage)
		if backend == nil {
			return &ValidationError{Reason: "object " + name + ": storage " + obj.Storage + " is not bound"}
		}
		if err := backend.ValidateObject(ctx, obj); err != nil {
			return &ValidationError{Reason: "object " + name + ": " + err.Error()}
		}
	}

	for _, name := range g.Edges() {
		edge := g.Edge(name)
		target := g.Object(edge.To.ObjectType)
		backend := g.Storage(target.Storage)
		if backend == nil {
			return &ValidationError{Reason: "edge " + name + ": storage " + target.Storage + " is not bound"}
		}
		if err := backend.ValidateEdge(ctx, edge); err != nil {
			return &ValidationError{Reason: "edge " + name + ": " + err.Error()}
		}
	}

	if unreachable := unreachableObjects(g); len(unreachable) > 0 {
		sort.Strings(unreachable)
		return &ValidationError{Unreachable: unreachable}
	}

	return nil
}

// checkReferences enforces the one structural invariant Build cannot
// check itself: every by_x_only set names an actual inbound edge of
// that object (it depends only on the completed graph, same as
// reachability, so it lives here rather than duplicating edge-set
// bookkeeping inside Build).
func checkReferences(g *schema.Graph) error {
	for _, name := range g.Objects() {
		obj := g.Object(name)
		if obj.Deletion.Kind != schema.DeletionByXOnly {
			continue
		}
		inbound := make(map[string]bool)
		for _, edge := range g.InboundEdges(name) {
			inbound[edge.Name] = true
		}
		for edgeName := range obj.Deletion.ByXOnly {
			if !inbound[edgeName] {
				return &ValidationError{Reason: "object " + name + ": by_x_only names " + edgeName + ", which is not an inbound edge"}
			}
		}
	}

	return nil
}

// unreachableObjects performs the reachability analysis of spec.md §4.1:
// depth-first from every directly/directly_only/short_ttl/not_deleted
// object, following only deep/refcount outbound edges.
func unreachableObjects(g *schema.Graph) []string {
	visited := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, edge := range g.OutboundEdges(name) {
			if edge.Deletion == schema.EdgeDeletionDeep || edge.Deletion == schema.EdgeDeletionRefcount {
				visit(edge.To.ObjectType)
			}
		}
	}

	for _, name := range g.Objects() {
		obj := g.Object(name)
		switch obj.Deletion.Kind {
		case schema.DeletionDirectly, schema.DeletionDirectlyOnly, schema.DeletionShortTTL, schema.DeletionNotDeleted:
			visit(name)
		}
	}

	var unreached []string
	for _, name := range g.Objects() {
		if !visited[name] {
			unreached = append(unreached, name)
		}
	}
	return unreached
}
