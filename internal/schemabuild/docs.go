// Package schemabuild constructs and validates a schema.Graph from the
// parsed schema and config documents described in spec.md §6's DDL.
//
// Build/Validate are the core: they never touch YAML or a filesystem.
// Document decoding lives in internal/delfconfig, which produces the
// SchemaDoc/ConfigDoc values this package consumes.
package schemabuild

// SchemaDoc is one parsed object_type document.
type SchemaDoc struct {
	ObjectType ObjectTypeDoc
}

// ObjectTypeDoc mirrors the object_type grammar of spec.md §6.
type ObjectTypeDoc struct {
	Name      string
	Storage   string
	Deletion  string
	ID        string
	IDType    string
	X         []string
	TimeField string
	EdgeTypes []EdgeTypeDoc
}

// EdgeTypeDoc mirrors one entry of object_type.edge_types.
type EdgeTypeDoc struct {
	Name     string
	Deletion string
	Inverse  string
	To       ToDoc
}

// ToDoc mirrors an edge's "to" block.
type ToDoc struct {
	ObjectType   string
	Field        string
	MappingTable string
}

// ConfigDoc is one parsed config document (a list of storage bindings).
type ConfigDoc struct {
	Storages []StorageDoc
}

// StorageDoc mirrors one entry of config.storages.
type StorageDoc struct {
	Name   string
	Plugin string
	URL    string
}
