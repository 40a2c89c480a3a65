package schemabuild

import (
	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/storage"
)

// Build constructs a schema.Graph from parsed schema and config
// documents, resolving every reference as it goes:
//
//  1. For each object document, instantiate an Object node.
//  2. For each edge declared inside an object document, instantiate an
//     Edge, but don't wire it yet — the target object may not exist.
//  3. Once every object is known, resolve each edge's to.object_type
//     and add the arc to the graph.
//  4. Resolve every edge's inverse against the now-complete edge set.
//  5. For each config storage, build the named Capability through
//     registry and bind it into the graph.
//  6. Confirm every object's declared storage was actually bound.
//
// An edge referencing an undeclared object or inverse, or an object
// referencing an undefined storage, fails Build with a *BuildError —
// the graph is never returned in that case (spec.md §4/§7.1). Build
// never touches YAML or a filesystem; registry is the only
// collaborator it needs.
func Build(schemaDocs []SchemaDoc, configDocs []ConfigDoc, registry *storage.Registry) (*schema.Graph, error) {
	g := schema.NewGraph()

	type pendingEdge struct {
		fromObject string
		doc        EdgeTypeDoc
	}
	var pending []pendingEdge

	for _, doc := range schemaDocs {
		o := doc.ObjectType
		if o.Name == "" {
			return nil, buildErrorf("object_type missing required name")
		}
		if o.Storage == "" {
			return nil, buildErrorf("object_type %q missing required storage", o.Name)
		}
		if o.ID == "" {
			return nil, buildErrorf("object_type %q missing required id field", o.Name)
		}
		idType, err := schema.ParseIDType(o.IDType)
		if err != nil {
			return nil, buildErrorf("object_type %q: %s", o.Name, err)
		}
		deletion, err := schema.ParseObjectDeletion(o.Deletion, o.X)
		if err != nil {
			return nil, buildErrorf("object_type %q: %s", o.Name, err)
		}
		if deletion.Kind == schema.DeletionShortTTL && o.TimeField == "" {
			return nil, buildErrorf("object_type %q: short_ttl deletion requires time_field", o.Name)
		}

		obj := &schema.Object{
			Name:      o.Name,
			Storage:   o.Storage,
			IDField:   o.ID,
			IDType:    idType,
			Deletion:  deletion,
			TimeField: o.TimeField,
		}
		if err := g.AddObject(obj); err != nil {
			return nil, buildErrorf("%s", err)
		}

		for _, e := range o.EdgeTypes {
			pending = append(pending, pendingEdge{fromObject: o.Name, doc: e})
		}
	}

	for _, p := range pending {
		e := p.doc
		if e.Name == "" {
			return nil, buildErrorf("object_type %q: edge_types entry missing required name", p.fromObject)
		}
		if e.To.ObjectType == "" {
			return nil, buildErrorf("edge %q missing required to.object_type", e.Name)
		}
		deletion, err := schema.ParseEdgeDeletion(e.Deletion)
		if err != nil {
			return nil, buildErrorf("edge %q: %s", e.Name, err)
		}
		field := e.To.Field
		if field == "" {
			return nil, buildErrorf("edge %q missing required to.field", e.Name)
		}

		edge := &schema.Edge{
			Name:       e.Name,
			FromObject: p.fromObject,
			Deletion:   deletion,
			Inverse:    e.Inverse,
			To: schema.EdgeTarget{
				ObjectType:   e.To.ObjectType,
				Field:        field,
				MappingTable: e.To.MappingTable,
			},
		}
		if err := g.AddEdge(edge); err != nil {
			return nil, buildErrorf("%s", err)
		}
	}

	for _, name := range g.Edges() {
		edge := g.Edge(name)
		if edge.Inverse == "" {
			continue
		}
		if g.Edge(edge.Inverse) == nil {
			return nil, buildErrorf("edge %q: inverse %q is not a known edge", name, edge.Inverse)
		}
	}

	if registry != nil {
		for _, cfg := range configDocs {
			for _, s := range cfg.Storages {
				if s.Name == "" {
					return nil, buildErrorf("config storage entry missing required name")
				}
				if s.Plugin == "" {
					return nil, buildErrorf("storage %q missing required plugin", s.Name)
				}
				capability, err := registry.Build(s.Plugin, s.URL)
				if err != nil {
					return nil, buildErrorf("storage %q: %s", s.Name, err)
				}
				if err := g.BindStorage(s.Name, capability); err != nil {
					return nil, buildErrorf("%s", err)
				}
			}
		}
	}

	for _, name := range g.Objects() {
		obj := g.Object(name)
		if g.Storage(obj.Storage) == nil {
			return nil, buildErrorf("object %q references undefined storage %q", name, obj.Storage)
		}
	}

	return g, nil
}
