package schema

import "testing"

func TestParseIDType(t *testing.T) {
	tests := []struct {
		input   string
		want    IDType
		wantErr bool
	}{
		{"", IDTypeInteger, false},
		{"integer", IDTypeInteger, false},
		{"string", IDTypeString, false},
		{"uuid", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIDType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIDType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseIDType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIDTypeString(t *testing.T) {
	if got := IDTypeInteger.String(); got != "integer" {
		t.Errorf("IDTypeInteger.String() = %q, want integer", got)
	}
	if got := IDTypeString.String(); got != "string" {
		t.Errorf("IDTypeString.String() = %q, want string", got)
	}
}

func TestParseObjectDeletion(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		x       []string
		want    ObjectDeletionKind
		wantErr bool
	}{
		{"by_any", "by_any", nil, DeletionByAny, false},
		{"directly", "directly", nil, DeletionDirectly, false},
		{"directly_only", "directly_only", nil, DeletionDirectlyOnly, false},
		{"short_ttl", "short_ttl", nil, DeletionShortTTL, false},
		{"not_deleted", "not_deleted", nil, DeletionNotDeleted, false},
		{"by_x_only with x", "by_x_only", []string{"some_edge"}, DeletionByXOnly, false},
		{"by_x_only without x", "by_x_only", nil, 0, true},
		{"unrecognized", "whenever", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectDeletion(tt.kind, tt.x)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseObjectDeletion(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Kind != tt.want {
				t.Errorf("ParseObjectDeletion(%q).Kind = %v, want %v", tt.kind, got.Kind, tt.want)
			}
			if tt.kind == "by_x_only" {
				if _, ok := got.ByXOnly["some_edge"]; !ok {
					t.Errorf("ParseObjectDeletion(by_x_only) did not retain %q in ByXOnly set", "some_edge")
				}
			}
		})
	}
}

func TestObjectDeletionAllowsEdge(t *testing.T) {
	byX, err := ParseObjectDeletion("by_x_only", []string{"edge_a"})
	if err != nil {
		t.Fatalf("ParseObjectDeletion: %v", err)
	}
	if !byX.AllowsEdge("edge_a") {
		t.Error("by_x_only should allow the edge named in its x list")
	}
	if byX.AllowsEdge("edge_b") {
		t.Error("by_x_only should reject an edge absent from its x list")
	}

	directlyOnly, _ := ParseObjectDeletion("directly_only", nil)
	if directlyOnly.AllowsEdge("any_edge") {
		t.Error("directly_only should never be reachable via an inbound edge")
	}

	byAny, _ := ParseObjectDeletion("by_any", nil)
	if !byAny.AllowsEdge("any_edge") {
		t.Error("by_any should allow every inbound edge")
	}
}

func TestParseEdgeDeletion(t *testing.T) {
	tests := []struct {
		input   string
		want    EdgeDeletionKind
		wantErr bool
	}{
		{"deep", EdgeDeletionDeep, false},
		{"shallow", EdgeDeletionShallow, false},
		{"refcount", EdgeDeletionRefcount, false},
		{"cascade", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEdgeDeletion(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEdgeDeletion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseEdgeDeletion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEdgeTargetTable(t *testing.T) {
	direct := EdgeTarget{ObjectType: "review", Field: "paper_id"}
	if got := direct.Table("review"); got != "review" {
		t.Errorf("Table() = %q, want %q", got, "review")
	}

	mapped := EdgeTarget{ObjectType: "tag", Field: "tag_id", MappingTable: "paper_tags"}
	if got := mapped.Table("tag"); got != "paper_tags" {
		t.Errorf("Table() = %q, want %q", got, "paper_tags")
	}
}
