package schema

import "fmt"

// Graph is the immutable, in-memory representation of a delf data
// model: a directed multigraph whose nodes are objects and whose arcs
// are edges, plus the storage capabilities bound to each storage name.
//
// A Graph is built once by internal/schemabuild and never mutated
// afterward; every field below is safe to read concurrently from
// request goroutines and the sweeper.
type Graph struct {
	objects  map[string]*Object
	edges    map[string]*Edge
	outbound map[string][]string // object name -> outbound edge names
	inbound  map[string][]string // object name -> inbound edge names
	storages map[string]Capability
}

// NewGraph returns an empty, mutable-during-construction graph. Callers
// (internal/schemabuild) populate it with AddObject/AddEdge/BindStorage
// and should treat it as immutable once building completes.
func NewGraph() *Graph {
	return &Graph{
		objects:  make(map[string]*Object),
		edges:    make(map[string]*Edge),
		outbound: make(map[string][]string),
		inbound:  make(map[string][]string),
		storages: make(map[string]Capability),
	}
}

// AddObject registers an object node. Returns an error if the name is
// already taken (invariant 1 of the schema model).
func (g *Graph) AddObject(obj *Object) error {
	if _, exists := g.objects[obj.Name]; exists {
		return fmt.Errorf("duplicate object name %q", obj.Name)
	}
	g.objects[obj.Name] = obj
	return nil
}

// AddEdge registers an edge arc from edge.FromObject to edge.To.ObjectType.
// Both endpoints must already be registered via AddObject. Returns an
// error if the name is already taken or either endpoint is unknown.
func (g *Graph) AddEdge(edge *Edge) error {
	if _, exists := g.edges[edge.Name]; exists {
		return fmt.Errorf("duplicate edge name %q", edge.Name)
	}
	if _, ok := g.objects[edge.FromObject]; !ok {
		return fmt.Errorf("edge %q declared on undefined object %q", edge.Name, edge.FromObject)
	}
	if _, ok := g.objects[edge.To.ObjectType]; !ok {
		return fmt.Errorf("edge %q references undefined object_type %q", edge.Name, edge.To.ObjectType)
	}
	g.edges[edge.Name] = edge
	g.outbound[edge.FromObject] = append(g.outbound[edge.FromObject], edge.Name)
	g.inbound[edge.To.ObjectType] = append(g.inbound[edge.To.ObjectType], edge.Name)
	return nil
}

// BindStorage binds a storage name to a capability instance.
func (g *Graph) BindStorage(name string, cap Capability) error {
	if _, exists := g.storages[name]; exists {
		return fmt.Errorf("duplicate storage name %q", name)
	}
	g.storages[name] = cap
	return nil
}

// Object returns the object registered under name, or nil if unknown.
func (g *Graph) Object(name string) *Object {
	return g.objects[name]
}

// Edge returns the edge registered under name, or nil if unknown.
func (g *Graph) Edge(name string) *Edge {
	return g.edges[name]
}

// Storage returns the capability bound to name, or nil if unknown.
func (g *Graph) Storage(name string) Capability {
	return g.storages[name]
}

// Objects returns every object name registered in the graph.
func (g *Graph) Objects() []string {
	names := make([]string, 0, len(g.objects))
	for name := range g.objects {
		names = append(names, name)
	}
	return names
}

// Edges returns every edge name registered in the graph.
func (g *Graph) Edges() []string {
	names := make([]string, 0, len(g.edges))
	for name := range g.edges {
		names = append(names, name)
	}
	return names
}

// OutboundEdges returns the edges declared on objectName, pointing away
// from it.
func (g *Graph) OutboundEdges(objectName string) []*Edge {
	names := g.outbound[objectName]
	edges := make([]*Edge, 0, len(names))
	for _, name := range names {
		edges = append(edges, g.edges[name])
	}
	return edges
}

// InboundEdges returns the edges that terminate at objectName.
func (g *Graph) InboundEdges(objectName string) []*Edge {
	names := g.inbound[objectName]
	edges := make([]*Edge, 0, len(names))
	for _, name := range names {
		edges = append(edges, g.edges[name])
	}
	return edges
}

// ObjectCount returns the number of objects registered in the graph.
func (g *Graph) ObjectCount() int {
	return len(g.objects)
}
