// Package deletion implements the cascading deletion traversal: given a
// request to delete one object or edge instance, it interprets the
// graph's per-node and per-edge policies and issues the storage
// mutations needed to erase the instance together with everything
// transitively dependent on it.
package deletion

import (
	"context"
	"fmt"
	"time"

	"github.com/mcmcgrath13/delf/internal/metrics"
	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/telemetry"
	"go.uber.org/zap"
)

// Engine interprets a schema.Graph's deletion policies and drives the
// storage mutations a cascade requires. It holds no mutable state of
// its own beyond the graph and logger; a single Engine is safe for
// concurrent use from many request goroutines and the sweeper.
type Engine struct {
	graph  *schema.Graph
	logger *zap.Logger
}

// New returns an Engine bound to graph. A nil logger is replaced with a
// no-op logger.
func New(graph *schema.Graph, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{graph: graph, logger: logger}
}

// DeleteObject is the top-level entry point: delete the object instance
// identified by (name, id). Equivalent to an internal delete reached by
// no inbound edge.
func (e *Engine) DeleteObject(ctx context.Context, name, id string) error {
	start := time.Now()
	obj := e.graph.Object(name)
	if obj == nil {
		return fmt.Errorf("deletion: unknown object %q", name)
	}
	err := e.deleteObject(ctx, obj, id, nil)
	metrics.RecordCascadeDuration("delete_object", time.Since(start))
	return err
}

// DeleteEdge is the top-level entry point: delete the single edge
// instance between the two identified endpoints.
func (e *Engine) DeleteEdge(ctx context.Context, name, fromID, toID string) error {
	start := time.Now()
	edge := e.graph.Edge(name)
	if edge == nil {
		return fmt.Errorf("deletion: unknown edge %q", name)
	}
	err := e.deleteOne(ctx, edge, fromID, toID)
	metrics.RecordCascadeDuration("delete_edge", time.Since(start))
	return err
}

// fromEdge carries the inbound-edge context a recursive deletion was
// reached through, or is nil for a direct top-level call.
type fromEdge struct {
	edge *schema.Edge
}

// deleteObject implements spec.md §4.2.1: decide whether to delete
// (object, id, from_edge), and if so, fan out to every outbound edge
// once storage confirms the row was actually removed.
func (e *Engine) deleteObject(ctx context.Context, obj *schema.Object, id string, from *fromEdge) error {
	fromEdgeName := ""
	if from != nil {
		fromEdgeName = from.edge.Name
	}
	ctx, span := telemetry.StartDeleteObjectSpan(ctx, obj.Name, id, fromEdgeName)
	defer span.End()

	toDelete := objectToDelete(obj, from)
	if !toDelete {
		telemetry.EndDeleteObjectSpan(span, false, false)
		return nil
	}

	backend := e.graph.Storage(obj.Storage)
	if backend == nil {
		return fmt.Errorf("deletion: object %q: storage %q is not bound", obj.Name, obj.Storage)
	}

	removed, err := backend.DeleteObject(ctx, obj, id)
	if err != nil {
		metrics.RecordCascadeError(obj.Name, "delete_object")
		return fmt.Errorf("deletion: delete_object(%s, %s): %w", obj.Name, id, err)
	}
	telemetry.EndDeleteObjectSpan(span, true, removed)
	if !removed {
		// Already gone — another concurrent cascade got here first.
		// Stopping here is what makes re-entrant cascades terminate.
		return nil
	}
	metrics.RecordObjectDeleted(obj.Name)
	e.logger.Debug("deleted object", zap.String("object", obj.Name), zap.String("id", id))

	for _, outEdge := range e.graph.OutboundEdges(obj.Name) {
		if err := e.deleteAll(ctx, outEdge, id, obj.IDType); err != nil {
			return err
		}
	}
	return nil
}

// objectToDelete implements the decision table of spec.md §4.2.1.
func objectToDelete(obj *schema.Object, from *fromEdge) bool {
	switch obj.Deletion.Kind {
	case schema.DeletionByAny:
		return from != nil
	case schema.DeletionDirectly:
		return true
	case schema.DeletionDirectlyOnly:
		return from == nil
	case schema.DeletionByXOnly:
		return from != nil && obj.Deletion.AllowsEdge(from.edge.Name)
	case schema.DeletionShortTTL:
		return true
	case schema.DeletionNotDeleted:
		return false
	default:
		return false
	}
}

// deleteOne implements spec.md §4.2.2: delete a single outbound edge
// instance, recursing into the target per the edge's deletion policy,
// then removing the edge row itself and its inverse (if any).
func (e *Engine) deleteOne(ctx context.Context, edge *schema.Edge, fromID, toID string) error {
	ctx, span := telemetry.StartDeleteEdgeSpan(ctx, edge.Name, fromID, toID)
	defer span.End()

	target := e.graph.Object(edge.To.ObjectType)
	if target == nil {
		return fmt.Errorf("deletion: edge %q: unknown target object %q", edge.Name, edge.To.ObjectType)
	}
	backend := e.graph.Storage(target.Storage)
	if backend == nil {
		return fmt.Errorf("deletion: edge %q: target storage %q is not bound", edge.Name, target.Storage)
	}

	switch edge.Deletion {
	case schema.EdgeDeletionDeep:
		if err := e.deleteObject(ctx, target, toID, &fromEdge{edge: edge}); err != nil {
			return err
		}
	case schema.EdgeDeletionRefcount:
		last, err := e.isLastReference(ctx, backend, target, toID, edge)
		if err != nil {
			return err
		}
		if last {
			if err := e.deleteObject(ctx, target, toID, &fromEdge{edge: edge}); err != nil {
				return err
			}
		}
	case schema.EdgeDeletionShallow:
		// Target is never touched.
	}

	toIDCopy := toID
	removed, err := backend.DeleteEdge(ctx, target, fromID, &toIDCopy, edge)
	if err != nil {
		metrics.RecordCascadeError(edge.Name, "delete_edge")
		return fmt.Errorf("deletion: delete_edge(%s, %s, %s): %w", edge.Name, fromID, toID, err)
	}
	if removed {
		metrics.RecordEdgeDeleted(edge.Name)
		if edge.Inverse != "" {
			inverse := e.graph.Edge(edge.Inverse)
			if inverse == nil {
				return fmt.Errorf("deletion: edge %q: unknown inverse %q", edge.Name, edge.Inverse)
			}
			if err := e.deleteOne(ctx, inverse, toID, fromID); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteAll implements spec.md §4.2.3: cascade every outbound instance
// of edge from fromID, used after the source object itself is gone.
func (e *Engine) deleteAll(ctx context.Context, edge *schema.Edge, fromID string, fromIDType schema.IDType) error {
	ctx, span := telemetry.StartDeleteAllSpan(ctx, edge.Name, fromID)
	defer span.End()

	target := e.graph.Object(edge.To.ObjectType)
	if target == nil {
		return fmt.Errorf("deletion: edge %q: unknown target object %q", edge.Name, edge.To.ObjectType)
	}
	backend := e.graph.Storage(target.Storage)
	if backend == nil {
		return fmt.Errorf("deletion: edge %q: target storage %q is not bound", edge.Name, target.Storage)
	}
	table := edge.To.Table(target.Name)

	switch edge.Deletion {
	case schema.EdgeDeletionDeep:
		toIDs, err := backend.GetObjectIDs(ctx, fromID, fromIDType, edge.To.Field, table, target.IDField, target.IDType)
		if err != nil {
			metrics.RecordCascadeError(edge.Name, "get_object_ids")
			return fmt.Errorf("deletion: get_object_ids(%s): %w", edge.Name, err)
		}
		for _, toID := range toIDs {
			if err := e.deleteObject(ctx, target, toID, &fromEdge{edge: edge}); err != nil {
				return err
			}
		}
	case schema.EdgeDeletionRefcount:
		toIDs, err := backend.GetObjectIDs(ctx, fromID, fromIDType, edge.To.Field, table, target.IDField, target.IDType)
		if err != nil {
			metrics.RecordCascadeError(edge.Name, "get_object_ids")
			return fmt.Errorf("deletion: get_object_ids(%s): %w", edge.Name, err)
		}
		for _, toID := range toIDs {
			last, err := e.isLastReference(ctx, backend, target, toID, edge)
			if err != nil {
				return err
			}
			if last {
				if err := e.deleteObject(ctx, target, toID, &fromEdge{edge: edge}); err != nil {
					return err
				}
			}
		}
	case schema.EdgeDeletionShallow:
		// Targets are never touched.
	}

	if edge.Inverse != "" {
		// Fetched again, deliberately: deep/refcount recursion above may
		// have already removed some targets, and the inverse deletion
		// must only process survivors.
		toIDs, err := backend.GetObjectIDs(ctx, fromID, fromIDType, edge.To.Field, table, target.IDField, target.IDType)
		if err != nil {
			metrics.RecordCascadeError(edge.Name, "get_object_ids")
			return fmt.Errorf("deletion: get_object_ids(%s) for inverse: %w", edge.Name, err)
		}
		for _, toID := range toIDs {
			if err := e.deleteOne(ctx, e.graph.Edge(edge.Inverse), toID, fromID); err != nil {
				return err
			}
		}
	}

	if _, err := backend.DeleteEdge(ctx, target, fromID, nil, edge); err != nil {
		metrics.RecordCascadeError(edge.Name, "delete_edge")
		return fmt.Errorf("deletion: bulk delete_edge(%s, %s): %w", edge.Name, fromID, err)
	}
	return nil
}

// isLastReference implements the refcount probe of spec.md §4.2.2 step
// 2: ask whether any other inbound edge of target still references id.
func (e *Engine) isLastReference(ctx context.Context, backend schema.Capability, target *schema.Object, id string, self *schema.Edge) (bool, error) {
	for _, other := range e.graph.InboundEdges(target.Name) {
		if other.Name == self.Name {
			continue
		}
		has, err := backend.HasEdge(ctx, target, id, other)
		if err != nil {
			metrics.RecordCascadeError(other.Name, "has_edge")
			return false, fmt.Errorf("deletion: has_edge(%s, %s, %s): %w", target.Name, id, other.Name, err)
		}
		if has {
			return false, nil
		}
	}
	return true, nil
}
