// Package schema defines the typed, immutable representation of a delf
// data model: objects (entities), edges (references between them), and
// the storage capabilities that back them.
//
// Values in this package are built once by internal/schemabuild and then
// shared read-only across every request goroutine and the sweeper.
package schema

import "fmt"

// IDType governs how an object's identifier is quoted/bound when a
// storage.Capability constructs a predicate against it.
type IDType int

const (
	IDTypeInteger IDType = iota
	IDTypeString
)

// ParseIDType parses the "string"/"integer" id_type field from a schema
// document. An empty input defaults to integer, per the DDL ("id_type:
// string | integer # default: integer").
func ParseIDType(s string) (IDType, error) {
	switch s {
	case "", "integer":
		return IDTypeInteger, nil
	case "string":
		return IDTypeString, nil
	default:
		return 0, fmt.Errorf("unrecognized id_type %q", s)
	}
}

func (t IDType) String() string {
	if t == IDTypeString {
		return "string"
	}
	return "integer"
}

// ObjectDeletionKind is the tag of the ObjectDeletion variant.
type ObjectDeletionKind int

const (
	DeletionByAny ObjectDeletionKind = iota
	DeletionDirectly
	DeletionDirectlyOnly
	DeletionByXOnly
	DeletionShortTTL
	DeletionNotDeleted
)

func (k ObjectDeletionKind) String() string {
	switch k {
	case DeletionByAny:
		return "by_any"
	case DeletionDirectly:
		return "directly"
	case DeletionDirectlyOnly:
		return "directly_only"
	case DeletionByXOnly:
		return "by_x_only"
	case DeletionShortTTL:
		return "short_ttl"
	case DeletionNotDeleted:
		return "not_deleted"
	default:
		return "unknown"
	}
}

// ObjectDeletion is the deletion policy of an Object. It is a tagged
// union: ByXOnly only carries meaning when Kind == DeletionByXOnly, per
// the "prefer a tagged-variant representation" design note — one case
// per deletion kind, the by_x_only case owning its set.
type ObjectDeletion struct {
	Kind ObjectDeletionKind

	// ByXOnly is the set of inbound edge names allowed to delete the
	// object. Only meaningful when Kind == DeletionByXOnly.
	ByXOnly map[string]struct{}
}

// AllowsEdge reports whether an inbound edge named edgeName is permitted
// to delete an object carrying this policy, irrespective of whether the
// deletion is actually triggered (see deletion.Engine for the full
// decision table, which also accounts for from_edge being absent).
func (d ObjectDeletion) AllowsEdge(edgeName string) bool {
	switch d.Kind {
	case DeletionByXOnly:
		_, ok := d.ByXOnly[edgeName]
		return ok
	case DeletionByAny, DeletionDirectly, DeletionShortTTL:
		return true
	default:
		return false
	}
}

// ParseObjectDeletion parses the "deletion" field of an object_type
// document plus its optional "x" list (required iff kind == by_x_only).
func ParseObjectDeletion(kind string, x []string) (ObjectDeletion, error) {
	switch kind {
	case "by_any":
		return ObjectDeletion{Kind: DeletionByAny}, nil
	case "directly":
		return ObjectDeletion{Kind: DeletionDirectly}, nil
	case "directly_only":
		return ObjectDeletion{Kind: DeletionDirectlyOnly}, nil
	case "short_ttl":
		return ObjectDeletion{Kind: DeletionShortTTL}, nil
	case "not_deleted":
		return ObjectDeletion{Kind: DeletionNotDeleted}, nil
	case "by_x_only":
		if len(x) == 0 {
			return ObjectDeletion{}, fmt.Errorf("by_x_only deletion requires a non-empty x list")
		}
		set := make(map[string]struct{}, len(x))
		for _, name := range x {
			set[name] = struct{}{}
		}
		return ObjectDeletion{Kind: DeletionByXOnly, ByXOnly: set}, nil
	default:
		return ObjectDeletion{}, fmt.Errorf("unrecognized object deletion kind %q", kind)
	}
}

// EdgeDeletionKind is the deletion policy of an Edge.
type EdgeDeletionKind int

const (
	EdgeDeletionDeep EdgeDeletionKind = iota
	EdgeDeletionShallow
	EdgeDeletionRefcount
)

func (k EdgeDeletionKind) String() string {
	switch k {
	case EdgeDeletionDeep:
		return "deep"
	case EdgeDeletionShallow:
		return "shallow"
	case EdgeDeletionRefcount:
		return "refcount"
	default:
		return "unknown"
	}
}

// ParseEdgeDeletion parses the "deletion" field of an edge_types entry.
func ParseEdgeDeletion(kind string) (EdgeDeletionKind, error) {
	switch kind {
	case "deep":
		return EdgeDeletionDeep, nil
	case "shallow":
		return EdgeDeletionShallow, nil
	case "refcount":
		return EdgeDeletionRefcount, nil
	default:
		return 0, fmt.Errorf("unrecognized edge deletion kind %q", kind)
	}
}

// EdgeTarget describes the object an edge points to and how the
// reference is materialized in storage.
type EdgeTarget struct {
	// ObjectType is the name of the object this edge points to.
	ObjectType string

	// Field is the foreign-key column: on the target record when
	// MappingTable is empty, or on the mapping table otherwise.
	Field string

	// MappingTable, when non-empty, names the association table this
	// edge is materialized through.
	MappingTable string
}

// Table returns the table to scan for this edge's outbound instances:
// the mapping table when present, else the target object's name.
func (t EdgeTarget) Table(targetObjectName string) string {
	if t.MappingTable != "" {
		return t.MappingTable
	}
	return targetObjectName
}

// Object is a typed entity in the application data model.
type Object struct {
	Name      string
	Storage   string
	IDField   string
	IDType    IDType
	Deletion  ObjectDeletion
	TimeField string // required iff Deletion.Kind == DeletionShortTTL
}

// Edge is a typed, directed reference from one object to another.
type Edge struct {
	Name       string
	FromObject string
	To         EdgeTarget
	Deletion   EdgeDeletionKind

	// Inverse, when non-empty, names the companion edge that must also
	// be deleted when this edge instance is deleted.
	Inverse string
}
