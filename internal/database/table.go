package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nikhilpatra/tabledb/internal/sqlutil"
)

// ColumnValue pairs a column name with the value to insert or assign.
type ColumnValue struct {
	Col   string
	Value any
}

// Values is an ordered list of column/value pairs. Order determines both
// the column list in the generated statement and the parameter order.
type Values []ColumnValue

func (v Values) args() []any {
	args := make([]any, len(v))
	for i, cv := range v {
		args[i] = cv.Value
	}
	return args
}

// Row is one result row keyed by column name. Textual columns arrive from
// the driver as []byte and are normalized to string.
type Row map[string]any

// Table is a stateless handle for row operations on one table of its
// owning Database. It does not manage the Database's lifetime. Each
// operation runs a single autocommitted statement on a pooled connection.
type Table struct {
	db     *Database
	name   string
	logger zerolog.Logger
}

// Name returns the table name, including any temporary-table suffix.
func (t *Table) Name() string {
	return t.name
}

// InsertContext inserts one row and returns the generated id, or 0 when
// the table has no auto-increment column.
func (t *Table) InsertContext(ctx context.Context, values Values) (int64, error) {
	if t.db.closed {
		return 0, ErrClosed
	}

	cols := make([]string, len(values))
	for i, cv := range values {
		cols[i] = cv.Col
	}
	stmt := "INSERT INTO " + sqlutil.QuoteIdent(t.name) +
		" (" + sqlutil.QuoteIdents(cols) + ") VALUES (" + sqlutil.Placeholders(len(values)) + ")"

	t.logger.Debug().Str("stmt", stmt).Msg("Insert")
	res, err := t.db.db.ExecContext(ctx, stmt, values.args()...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id for %s: %w", t.name, err)
	}
	return id, nil
}

// Insert is InsertContext with context.Background().
func (t *Table) Insert(values Values) (int64, error) {
	return t.InsertContext(context.Background(), values)
}

// UpdateContext sets the given columns on every row matching the filters.
// With an empty set list no statement is issued at all and the call
// succeeds; callers must not assume an Update reaches the server. Bound
// parameters are all SET values followed by all WHERE values. Empty
// filters update every row.
func (t *Table) UpdateContext(ctx context.Context, where []sqlutil.Cond, set Values) error {
	if len(set) == 0 {
		return nil
	}
	if t.db.closed {
		return ErrClosed
	}

	assigns := make([]string, len(set))
	for i, cv := range set {
		assigns[i] = sqlutil.QuoteIdent(cv.Col) + " = ?"
	}
	pred, whereArgs := sqlutil.Where(where)

	stmt := "UPDATE " + sqlutil.QuoteIdent(t.name) + " SET " + strings.Join(assigns, ", ")
	if pred != "" {
		stmt += " WHERE " + pred
	}
	args := append(set.args(), whereArgs...)

	t.logger.Debug().Str("stmt", stmt).Msg("Update")
	if _, err := t.db.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	return nil
}

// Update is UpdateContext with context.Background().
func (t *Table) Update(where []sqlutil.Cond, set Values) error {
	return t.UpdateContext(context.Background(), where, set)
}

// SelectContext returns the rows matching the filters. A nil columns slice
// selects all columns; an empty non-nil slice is a programmer error and
// panics, so "no projection" cannot be confused with "select everything".
func (t *Table) SelectContext(ctx context.Context, where []sqlutil.Cond, columns []string) ([]Row, error) {
	if columns != nil && len(columns) == 0 {
		panic("tabledb: empty select column list (pass nil to select all columns)")
	}
	if t.db.closed {
		return nil, ErrClosed
	}

	projection := "*"
	if columns != nil {
		projection = sqlutil.QuoteIdents(columns)
	}
	pred, args := sqlutil.Where(where)

	stmt := "SELECT " + projection + " FROM " + sqlutil.QuoteIdent(t.name)
	if pred != "" {
		stmt += " WHERE " + pred
	}

	t.logger.Debug().Str("stmt", stmt).Msg("Select")
	rows, err := t.db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", t.name, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows from %s: %w", t.name, err)
	}
	return result, nil
}

// Select is SelectContext with context.Background().
func (t *Table) Select(where []sqlutil.Cond, columns []string) ([]Row, error) {
	return t.SelectContext(context.Background(), where, columns)
}

// ExistsContext reports whether at least one row matches the filters. The
// COUNT(1) value itself is inspected; a statement can execute successfully
// and still report zero matches.
func (t *Table) ExistsContext(ctx context.Context, where []sqlutil.Cond) (bool, error) {
	if t.db.closed {
		return false, ErrClosed
	}

	pred, args := sqlutil.Where(where)
	stmt := "SELECT COUNT(1) FROM " + sqlutil.QuoteIdent(t.name)
	if pred != "" {
		stmt += " WHERE " + pred
	}

	var count int64
	if err := t.db.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count rows in %s: %w", t.name, err)
	}
	return count >= 1, nil
}

// Exists is ExistsContext with context.Background().
func (t *Table) Exists(where []sqlutil.Cond) (bool, error) {
	return t.ExistsContext(context.Background(), where)
}

// DeleteContext deletes every row matching the filters. Empty filters are
// rejected with ErrUnboundedDelete: an unfiltered DELETE would silently
// match all rows, so the full-table case goes through DeleteAll instead.
func (t *Table) DeleteContext(ctx context.Context, where []sqlutil.Cond) error {
	if len(where) == 0 {
		return fmt.Errorf("failed to delete from %s: %w", t.name, ErrUnboundedDelete)
	}
	if t.db.closed {
		return ErrClosed
	}

	pred, args := sqlutil.Where(where)
	stmt := "DELETE FROM " + sqlutil.QuoteIdent(t.name) + " WHERE " + pred

	t.logger.Debug().Str("stmt", stmt).Msg("Delete")
	if _, err := t.db.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	return nil
}

// Delete is DeleteContext with context.Background().
func (t *Table) Delete(where []sqlutil.Cond) error {
	return t.DeleteContext(context.Background(), where)
}

// DeleteAllContext deletes every row in the table. This is the deliberate
// counterpart to the guard in DeleteContext.
func (t *Table) DeleteAllContext(ctx context.Context) error {
	if t.db.closed {
		return ErrClosed
	}

	stmt := "DELETE FROM " + sqlutil.QuoteIdent(t.name)
	t.logger.Debug().Str("stmt", stmt).Msg("Delete all")
	if _, err := t.db.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to delete all from %s: %w", t.name, err)
	}
	return nil
}

// DeleteAll is DeleteAllContext with context.Background().
func (t *Table) DeleteAll() error {
	return t.DeleteAllContext(context.Background())
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
