// Package sqlbackend is the schema.Capability implementation backed by
// a real SQL database, reachable through database/sql. Two plugins are
// registered with internal/storage.Registry: "postgres" (via
// pgx/v5/stdlib) and "mysql" (via go-sql-driver/mysql). Both plugins
// share the same query logic; only the placeholder syntax, identifier
// quoting and driver name differ.
package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/storage"
)

func init() {
	storage.DefaultRegistry.Register("postgres", func(url string) (schema.Capability, error) {
		return open("pgx", url, dialectPostgres)
	})
	storage.DefaultRegistry.Register("mysql", func(url string) (schema.Capability, error) {
		return open("mysql", url, dialectMySQL)
	})
}

// dialect captures the SQL-syntax differences the two plugins care
// about: how a positional parameter is spelled in a query string and
// how an identifier is quoted.
type dialect int

const (
	dialectPostgres dialect = iota
	dialectMySQL
)

// Backend is a schema.Capability that issues parameterized SQL against
// a database/sql connection pool. It performs no schema introspection
// beyond what ValidateObject/ValidateEdge need.
type Backend struct {
	db      *sql.DB
	dialect dialect
}

func open(driverName, url string, d dialect) (*Backend, error) {
	db, err := sql.Open(driverName, url)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: open %s: %w", driverName, err)
	}
	return &Backend{db: db, dialect: d}, nil
}

// placeholder returns the nth (1-based) positional parameter marker for
// the backend's dialect.
func (b *Backend) placeholder(n int) string {
	if b.dialect == dialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// DeleteObject deletes the row identified by id from obj's table.
func (b *Backend) DeleteObject(ctx context.Context, obj *schema.Object, id string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", b.quoteIdent(obj.Name), b.quoteIdent(obj.IDField), b.placeholder(1))
	res, err := b.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("sqlbackend: delete_object(%s, %s): %w", obj.Name, id, err)
	}
	return rowsAffected(res)
}

// DeleteEdge severs an edge instance. With a mapping table, that's a
// row deletion keyed on Field (the from-side match) and the target's
// own id column. Without one, the foreign key lives on the target's
// own row alongside its other columns, so the edge is severed with an
// UPDATE clearing Field rather than a DELETE of the whole row.
func (b *Backend) DeleteEdge(ctx context.Context, target *schema.Object, fromID string, toID *string, edge *schema.Edge) (bool, error) {
	var query string
	var args []any

	if edge.To.MappingTable != "" {
		table := edge.To.MappingTable
		if toID == nil {
			query = fmt.Sprintf("DELETE FROM %s WHERE %s = %s", b.quoteIdent(table), b.quoteIdent(edge.To.Field), b.placeholder(1))
			args = []any{fromID}
		} else {
			query = fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s",
				b.quoteIdent(table), b.quoteIdent(edge.To.Field), b.placeholder(1), b.quoteIdent(target.IDField), b.placeholder(2))
			args = []any{fromID, *toID}
		}
	} else if toID == nil {
		query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s",
			b.quoteIdent(target.Name), b.quoteIdent(edge.To.Field), b.quoteIdent(edge.To.Field), b.placeholder(1))
		args = []any{fromID}
	} else {
		query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s AND %s = %s",
			b.quoteIdent(target.Name), b.quoteIdent(edge.To.Field), b.quoteIdent(edge.To.Field), b.placeholder(1), b.quoteIdent(target.IDField), b.placeholder(2))
		args = []any{fromID, *toID}
	}

	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("sqlbackend: delete_edge(%s, %s): %w", edge.Name, fromID, err)
	}
	return rowsAffected(res)
}

// GetObjectIDs returns the ids of every row in table whose field column
// equals fromID.
func (b *Backend) GetObjectIDs(ctx context.Context, fromID string, _ schema.IDType, field, table, idField string, _ schema.IDType) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", b.quoteIdent(idField), b.quoteIdent(table), b.quoteIdent(field), b.placeholder(1))
	rows, err := b.db.QueryContext(ctx, query, fromID)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: get_object_ids(%s): %w", table, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// GetObjectIDsByTime returns the ids of every row in table whose
// timeField is <= now.
func (b *Backend) GetObjectIDsByTime(ctx context.Context, table, timeField, idField string, _ schema.IDType, now time.Time) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s <= %s", b.quoteIdent(idField), b.quoteIdent(table), b.quoteIdent(timeField), b.placeholder(1))
	rows, err := b.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: get_object_ids_by_time(%s): %w", table, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// HasEdge reports whether any row of edge's table references (target,
// id). With a mapping table, that's a row whose target id column
// (target.IDField) matches id. Without one, the foreign key lives on the target's own row, so a
// live reference is a target row with that id whose Field column is
// populated.
func (b *Backend) HasEdge(ctx context.Context, target *schema.Object, id string, edge *schema.Edge) (bool, error) {
	var query string
	if edge.To.MappingTable != "" {
		query = fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s LIMIT 1",
			b.quoteIdent(edge.To.MappingTable), b.quoteIdent(target.IDField), b.placeholder(1))
	} else {
		query = fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s AND %s IS NOT NULL LIMIT 1",
			b.quoteIdent(target.Name), b.quoteIdent(target.IDField), b.placeholder(1), b.quoteIdent(edge.To.Field))
	}
	row := b.db.QueryRowContext(ctx, query, id)
	var discard int
	switch err := row.Scan(&discard); {
	case err == nil:
		return true, nil
	case err == sql.ErrNoRows:
		return false, nil
	default:
		return false, fmt.Errorf("sqlbackend: has_edge(%s, %s): %w", edge.Name, id, err)
	}
}

// ValidateObject confirms obj's table and id column exist by issuing a
// zero-row SELECT against them.
func (b *Backend) ValidateObject(ctx context.Context, obj *schema.Object) error {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", b.quoteIdent(obj.IDField), b.quoteIdent(obj.Name))
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlbackend: object %q: %w", obj.Name, err)
	}
	return nil
}

// ValidateEdge confirms edge's mapping table (or field column) exists.
func (b *Backend) ValidateEdge(ctx context.Context, edge *schema.Edge) error {
	table := edge.To.MappingTable
	if table == "" {
		table = edge.To.ObjectType
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", b.quoteIdent(edge.To.Field), b.quoteIdent(table))
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlbackend: edge %q: %w", edge.Name, err)
	}
	return nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlbackend: rows_affected: %w", err)
	}
	return n > 0, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlbackend: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// quoteIdent quotes a table/column name drawn from trusted schema
// documents (never user input) in the backend's dialect.
func (b *Backend) quoteIdent(name string) string {
	if b.dialect == dialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
