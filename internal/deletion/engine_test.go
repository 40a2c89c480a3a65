package deletion

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/storage/memstore"
)

// buildGraph assembles the small HotCRP-derived fixture most of this
// file's scenarios share: a user authors a paper, a paper has reviews
// and can be tagged (refcount, via a mapping table shared with an
// inverse edge from tag), and a comment can tag the same tag through its
// own comment_tags mapping table without ever being allowed to delete
// the tag it references.
func buildGraph(t *testing.T) (*schema.Graph, *memstore.Store) {
	t.Helper()
	g := schema.NewGraph()
	store := memstore.New()

	objects := []*schema.Object{
		{Name: "user", Storage: "primary", IDField: "user_id", IDType: schema.IDTypeInteger, Deletion: schema.ObjectDeletion{Kind: schema.DeletionDirectly}},
		{Name: "paper", Storage: "primary", IDField: "paper_id", IDType: schema.IDTypeInteger, Deletion: schema.ObjectDeletion{Kind: schema.DeletionDirectlyOnly}},
		{Name: "review", Storage: "primary", IDField: "review_id", IDType: schema.IDTypeInteger, Deletion: schema.ObjectDeletion{Kind: schema.DeletionByAny}},
		{Name: "tag", Storage: "primary", IDField: "tag_id", IDType: schema.IDTypeInteger, Deletion: schema.ObjectDeletion{Kind: schema.DeletionByXOnly, ByXOnly: map[string]struct{}{"paper_tagged": {}}}},
		{Name: "comment", Storage: "primary", IDField: "comment_id", IDType: schema.IDTypeInteger, Deletion: schema.ObjectDeletion{Kind: schema.DeletionDirectly}},
	}
	for _, obj := range objects {
		if err := g.AddObject(obj); err != nil {
			t.Fatalf("AddObject(%q): %v", obj.Name, err)
		}
	}

	edges := []*schema.Edge{
		{Name: "user_authors_paper", FromObject: "user", Deletion: schema.EdgeDeletionDeep, To: schema.EdgeTarget{ObjectType: "paper", Field: "author_id"}},
		{Name: "paper_has_review", FromObject: "paper", Deletion: schema.EdgeDeletionDeep, To: schema.EdgeTarget{ObjectType: "review", Field: "paper_id"}},
		{Name: "paper_tagged", FromObject: "paper", Deletion: schema.EdgeDeletionRefcount, Inverse: "tag_applied_to_paper", To: schema.EdgeTarget{ObjectType: "tag", Field: "paper_id", MappingTable: "paper_tags"}},
		{Name: "tag_applied_to_paper", FromObject: "tag", Deletion: schema.EdgeDeletionShallow, Inverse: "paper_tagged", To: schema.EdgeTarget{ObjectType: "paper", Field: "tag_id", MappingTable: "paper_tags"}},
		{Name: "comment_tags", FromObject: "comment", Deletion: schema.EdgeDeletionShallow, To: schema.EdgeTarget{ObjectType: "tag", Field: "comment_id", MappingTable: "comment_tags"}},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge); err != nil {
			t.Fatalf("AddEdge(%q): %v", edge.Name, err)
		}
	}

	if err := g.BindStorage("primary", store); err != nil {
		t.Fatalf("BindStorage: %v", err)
	}
	return g, store
}

func newEngine(g *schema.Graph) *Engine {
	return New(g, zap.NewNop())
}

func TestDeleteObject_DeepCascadeRemovesReviews(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})
	store.Seed("review", map[string]string{"review_id": "10", "paper_id": "1"})
	store.Seed("review", map[string]string{"review_id": "11", "paper_id": "1"})
	store.Seed("review", map[string]string{"review_id": "12", "paper_id": "2"})

	eng := newEngine(g)
	if err := eng.DeleteObject(context.Background(), "paper", "1"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if rows := store.Rows("paper"); len(rows) != 0 {
		t.Errorf("paper rows = %v, want none left", rows)
	}
	remaining := store.Rows("review")
	if len(remaining) != 1 || remaining[0]["review_id"] != "12" {
		t.Errorf("review rows = %v, want only review 12 to survive", remaining)
	}
}

func TestDeleteObject_IsIdempotent(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})
	store.Seed("review", map[string]string{"review_id": "10", "paper_id": "1"})

	eng := newEngine(g)
	ctx := context.Background()
	if err := eng.DeleteObject(ctx, "paper", "1"); err != nil {
		t.Fatalf("first DeleteObject: %v", err)
	}
	// A second delete of an already-gone object must be a silent no-op,
	// not an error — this is what lets a re-entrant or concurrent
	// cascade terminate instead of looping.
	if err := eng.DeleteObject(ctx, "paper", "1"); err != nil {
		t.Fatalf("second DeleteObject: %v", err)
	}
}

func TestDeleteObject_RefcountDeletesTagWhenLastReference(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})
	store.Seed("tag", map[string]string{"tag_id": "500"})
	store.Seed("paper_tags", map[string]string{"paper_id": "1", "tag_id": "500"})

	eng := newEngine(g)
	if err := eng.DeleteObject(context.Background(), "paper", "1"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if rows := store.Rows("tag"); len(rows) != 0 {
		t.Errorf("tag rows = %v, want the tag deleted once its only tagging edge is gone", rows)
	}
	if rows := store.Rows("paper_tags"); len(rows) != 0 {
		t.Errorf("paper_tags rows = %v, want the mapping row gone", rows)
	}
}

// TestDeleteObject_RefcountSurvivesOtherEdgeType mirrors the Photo/a/b
// example: a tag is reachable through two distinct inbound edge types
// (paper_tagged and comment_tags). Deleting the paper must not delete
// the tag while a comment still references it through the other edge
// type — refcount only protects against other edge TYPES, never other
// instances of the same edge type, but that's exactly what this case
// exercises.
func TestDeleteObject_RefcountSurvivesOtherEdgeType(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})
	store.Seed("tag", map[string]string{"tag_id": "500"})
	store.Seed("paper_tags", map[string]string{"paper_id": "1", "tag_id": "500"})
	store.Seed("comment", map[string]string{"comment_id": "900"})
	store.Seed("comment_tags", map[string]string{"comment_id": "900", "tag_id": "500"})

	eng := newEngine(g)
	ctx := context.Background()
	if err := eng.DeleteObject(ctx, "paper", "1"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if rows := store.Rows("tag"); len(rows) != 1 {
		t.Fatalf("tag rows = %v, want the tag to survive while comment_tags references it", rows)
	}
	if rows := store.Rows("paper_tags"); len(rows) != 0 {
		t.Errorf("paper_tags rows = %v, want the paper's own mapping row gone regardless", rows)
	}

	// Now remove the other reference and confirm the tag is still not
	// touched: comment_tags is shallow, so deleting the comment must
	// never reach into the tag even though it is now the last reference.
	if err := eng.DeleteObject(ctx, "comment", "900"); err != nil {
		t.Fatalf("DeleteObject(comment): %v", err)
	}
	if rows := store.Rows("comment_tags"); len(rows) != 0 {
		t.Errorf("comment_tags rows = %v, want the mapping row cleared", rows)
	}
	if rows := store.Rows("tag"); len(rows) != 1 {
		t.Errorf("tag rows = %v, want the tag untouched by a shallow edge's deletion", rows)
	}
}

func TestDeleteObject_ByXOnlyRejectsEdgeNotInSet(t *testing.T) {
	g, store := buildGraph(t)
	// Reassign comment_tags to a deep edge so it attempts to delete its
	// target — tag's by_x_only set only names paper_tagged, so the
	// attempt must be refused even though the tag has no other
	// reference left.
	g.Edge("comment_tags").Deletion = schema.EdgeDeletionDeep

	store.Seed("tag", map[string]string{"tag_id": "500"})
	store.Seed("comment", map[string]string{"comment_id": "900"})
	store.Seed("comment_tags", map[string]string{"comment_id": "900", "tag_id": "500"})

	eng := newEngine(g)
	if err := eng.DeleteObject(context.Background(), "comment", "900"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if rows := store.Rows("tag"); len(rows) != 1 {
		t.Errorf("tag rows = %v, want the tag to survive — comment_tags is not in tag's by_x_only set", rows)
	}
	if rows := store.Rows("comment_tags"); len(rows) != 0 {
		t.Errorf("comment_tags rows = %v, want the mapping row cleared regardless of the target object surviving", rows)
	}
}

func TestDeleteObject_DirectlyOnlyRefusesCascadedDelete(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("user", map[string]string{"user_id": "100"})
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})

	eng := newEngine(g)
	// user_authors_paper is deep, but paper's deletion kind is
	// directly_only: it may only be deleted when reached with no
	// from_edge at all, so cascading through the user must leave it be.
	if err := eng.DeleteObject(context.Background(), "user", "100"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if rows := store.Rows("user"); len(rows) != 0 {
		t.Errorf("user rows = %v, want the user deleted", rows)
	}
	if rows := store.Rows("paper"); len(rows) != 1 {
		t.Errorf("paper rows = %v, want directly_only to refuse a cascaded delete", rows)
	}
}

func TestDeleteEdge_TopLevelDeepDeletesTarget(t *testing.T) {
	g, store := buildGraph(t)
	store.Seed("paper", map[string]string{"paper_id": "1", "author_id": "100"})
	store.Seed("review", map[string]string{"review_id": "10", "paper_id": "1"})

	eng := newEngine(g)
	if err := eng.DeleteEdge(context.Background(), "paper_has_review", "1", "10"); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}

	if rows := store.Rows("review"); len(rows) != 0 {
		t.Errorf("review rows = %v, want the reviewed deleted via deep edge deletion", rows)
	}
	if rows := store.Rows("paper"); len(rows) != 1 {
		t.Errorf("paper rows = %v, want the paper itself untouched by an edge-level delete", rows)
	}
}

func TestDeleteObject_UnknownObjectIsAnError(t *testing.T) {
	g, _ := buildGraph(t)
	eng := newEngine(g)
	if err := eng.DeleteObject(context.Background(), "no_such_object", "1"); err == nil {
		t.Error("expected an error for an unknown object name")
	}
}

func TestDeleteEdge_UnknownEdgeIsAnError(t *testing.T) {
	g, _ := buildGraph(t)
	eng := newEngine(g)
	if err := eng.DeleteEdge(context.Background(), "no_such_edge", "1", "2"); err == nil {
		t.Error("expected an error for an unknown edge name")
	}
}
