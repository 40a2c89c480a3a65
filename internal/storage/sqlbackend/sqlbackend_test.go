package sqlbackend

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mcmcgrath13/delf/internal/schema"
)

func newMock(t *testing.T) (*Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Backend{db: db, dialect: dialectPostgres}, mock
}

var paperObj = &schema.Object{Name: "paper", IDField: "paper_id", IDType: schema.IDTypeInteger}
var tagObj = &schema.Object{Name: "tag", IDField: "tag_id", IDType: schema.IDTypeInteger}

func TestDeleteObject(t *testing.T) {
	b, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM "paper" WHERE "paper_id" = \$1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := b.DeleteObject(context.Background(), paperObj, "1")
	if err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteEdge_MappingTable(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "paper_tagged", To: schema.EdgeTarget{ObjectType: "tag", Field: "paper_id", MappingTable: "paper_tags"}}

	mock.ExpectExec(`DELETE FROM "paper_tags" WHERE "paper_id" = \$1 AND "tag_id" = \$2`).
		WithArgs("1", "500").
		WillReturnResult(sqlmock.NewResult(0, 1))

	toID := "500"
	removed, err := b.DeleteEdge(context.Background(), tagObj, "1", &toID, edge)
	if err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteEdge_MappingTableBulk(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "paper_tagged", To: schema.EdgeTarget{ObjectType: "tag", Field: "paper_id", MappingTable: "paper_tags"}}

	mock.ExpectExec(`DELETE FROM "paper_tags" WHERE "paper_id" = \$1`).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := b.DeleteEdge(context.Background(), tagObj, "1", nil, edge)
	if err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// TestDeleteEdge_DirectFieldClear covers the non-mapping-table case: the
// foreign key lives on the target's own row alongside its other
// columns, so severing the edge must be an UPDATE that clears just that
// column, never a DELETE of the row.
func TestDeleteEdge_DirectFieldClear(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "paper_has_review", To: schema.EdgeTarget{ObjectType: "review", Field: "paper_id"}}
	reviewObj := &schema.Object{Name: "review", IDField: "review_id"}

	mock.ExpectExec(`UPDATE "review" SET "paper_id" = NULL WHERE "paper_id" = \$1 AND "review_id" = \$2`).
		WithArgs("1", "10").
		WillReturnResult(sqlmock.NewResult(0, 1))

	toID := "10"
	removed, err := b.DeleteEdge(context.Background(), reviewObj, "1", &toID, edge)
	if err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHasEdge_MappingTable(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "comment_tags", To: schema.EdgeTarget{ObjectType: "tag", Field: "comment_id", MappingTable: "comment_tags"}}

	mock.ExpectQuery(`SELECT 1 FROM "comment_tags" WHERE "tag_id" = \$1 LIMIT 1`).
		WithArgs("500").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	has, err := b.HasEdge(context.Background(), tagObj, "500", edge)
	if err != nil {
		t.Fatalf("HasEdge: %v", err)
	}
	if !has {
		t.Error("has = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHasEdge_MappingTableNoRows(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "comment_tags", To: schema.EdgeTarget{ObjectType: "tag", Field: "comment_id", MappingTable: "comment_tags"}}

	mock.ExpectQuery(`SELECT 1 FROM "comment_tags" WHERE "tag_id" = \$1 LIMIT 1`).
		WithArgs("500").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	has, err := b.HasEdge(context.Background(), tagObj, "500", edge)
	if err != nil {
		t.Fatalf("HasEdge: %v", err)
	}
	if has {
		t.Error("has = true, want false")
	}
}

func TestHasEdge_DirectField(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "paper_authored_by_user", To: schema.EdgeTarget{ObjectType: "user", Field: "author_id"}}
	userObj := &schema.Object{Name: "user", IDField: "user_id"}

	mock.ExpectQuery(`SELECT 1 FROM "user" WHERE "user_id" = \$1 AND "author_id" IS NOT NULL LIMIT 1`).
		WithArgs("100").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	has, err := b.HasEdge(context.Background(), userObj, "100", edge)
	if err != nil {
		t.Fatalf("HasEdge: %v", err)
	}
	if !has {
		t.Error("has = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetObjectIDs(t *testing.T) {
	b, mock := newMock(t)
	mock.ExpectQuery(`SELECT "review_id" FROM "review" WHERE "paper_id" = \$1`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"review_id"}).AddRow("10").AddRow("11"))

	ids, err := b.GetObjectIDs(context.Background(), "1", schema.IDTypeInteger, "paper_id", "review", "review_id", schema.IDTypeInteger)
	if err != nil {
		t.Fatalf("GetObjectIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "10" || ids[1] != "11" {
		t.Errorf("ids = %v, want [10 11]", ids)
	}
}

func TestGetObjectIDsByTime(t *testing.T) {
	b, mock := newMock(t)
	mock.ExpectQuery(`SELECT "session_id" FROM "session" WHERE "expires_at" <= \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("abc"))

	ids, err := b.GetObjectIDsByTime(context.Background(), "session", "expires_at", "session_id", schema.IDTypeString, time.Now())
	if err != nil {
		t.Fatalf("GetObjectIDsByTime: %v", err)
	}
	if len(ids) != 1 || ids[0] != "abc" {
		t.Errorf("ids = %v, want [abc]", ids)
	}
}

func TestValidateObject(t *testing.T) {
	b, mock := newMock(t)
	mock.ExpectExec(`SELECT "paper_id" FROM "paper" WHERE 1 = 0`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := b.ValidateObject(context.Background(), paperObj); err != nil {
		t.Errorf("ValidateObject: %v", err)
	}
}

func TestValidateObject_MissingTable(t *testing.T) {
	b, mock := newMock(t)
	mock.ExpectExec(`SELECT "paper_id" FROM "paper" WHERE 1 = 0`).
		WillReturnError(context.DeadlineExceeded)

	if err := b.ValidateObject(context.Background(), paperObj); err == nil {
		t.Error("expected an error when the table doesn't exist")
	}
}

func TestValidateEdge(t *testing.T) {
	b, mock := newMock(t)
	edge := &schema.Edge{Name: "paper_tagged", To: schema.EdgeTarget{ObjectType: "tag", Field: "paper_id", MappingTable: "paper_tags"}}
	mock.ExpectExec(`SELECT "paper_id" FROM "paper_tags" WHERE 1 = 0`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := b.ValidateEdge(context.Background(), edge); err != nil {
		t.Errorf("ValidateEdge: %v", err)
	}
}

func TestQuoteIdentMySQL(t *testing.T) {
	b := &Backend{dialect: dialectMySQL}
	if got := b.quoteIdent("paper"); got != "`paper`" {
		t.Errorf("quoteIdent(paper) = %q, want `paper`", got)
	}
	if got := b.placeholder(2); got != "?" {
		t.Errorf("placeholder(2) = %q, want ?", got)
	}
}
