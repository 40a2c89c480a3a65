package schema

import (
	"context"
	"time"
)

// Capability is the narrow interface the deletion engine requires from
// any storage backend. It is intentionally small: the engine is
// agnostic to whatever database or service actually holds the data.
//
// Every mutating method reports whether it actually removed a row.
// That boolean is load-bearing: returning false on a no-op delete is
// what makes cascades idempotent and guarantees traversal termination
// (see internal/deletion).
type Capability interface {
	// DeleteObject deletes the instance of obj identified by id.
	// Returns true iff a row was actually removed.
	DeleteObject(ctx context.Context, obj *Object, id string) (bool, error)

	// DeleteEdge deletes edge instance(s) from fromID to toID. When
	// toID is nil, all outbound instances of edge from fromID are
	// removed (a "bulk" delete, used after the source object itself
	// has been deleted). target is the edge's target object.
	// Returns true iff at least one row was removed.
	DeleteEdge(ctx context.Context, target *Object, fromID string, toID *string, edge *Edge) (bool, error)

	// GetObjectIDs returns the ids of every record found in table whose
	// field column equals fromID, projecting idField as a value of
	// idType. table is either the edge's mapping table or the target
	// object's own table, per EdgeTarget.Table.
	GetObjectIDs(ctx context.Context, fromID string, fromIDType IDType, field, table, idField string, idType IDType) ([]string, error)

	// GetObjectIDsByTime returns the ids of every record in table whose
	// timeField is <= now, used by the short-TTL sweeper.
	GetObjectIDsByTime(ctx context.Context, table, timeField, idField string, idType IDType, now time.Time) ([]string, error)

	// HasEdge reports whether an instance of edge terminates at
	// (target, id) — used by refcount edges to probe other inbound
	// edges for a live reference before deleting the target.
	HasEdge(ctx context.Context, target *Object, id string, edge *Edge) (bool, error)

	// ValidateObject confirms obj's declared storage/id_field match
	// reality in the backend.
	ValidateObject(ctx context.Context, obj *Object) error

	// ValidateEdge confirms edge's declared field/mapping_table match
	// reality in the backend.
	ValidateEdge(ctx context.Context, edge *Edge) error
}
