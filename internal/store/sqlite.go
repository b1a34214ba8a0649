package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
)

// SQLite is a Gateway over a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open SQLite handle and applies the schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Find returns all records matching the filter.
func (s *SQLite) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Record, error) {
	cs, err := schemaFor(collection)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(cs, filter, qmarkPlaceholder)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", strings.Join(cs.columns, ", "), cs.table, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows, cs)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if opts.Populate {
		for _, rec := range records {
			if err := s.populate(ctx, cs, rec); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// FindOne returns the first record matching the filter, or
// httpx.ErrNotFound when nothing matches.
func (s *SQLite) FindOne(ctx context.Context, collection string, filter Filter, opts FindOptions) (Record, error) {
	records, err := s.Find(ctx, collection, filter, FindOptions{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, httpx.ErrNotFound
	}
	rec := records[0]
	if opts.Populate {
		cs, _ := schemaFor(collection)
		if err := s.populate(ctx, cs, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Create inserts a record and returns it as stored.
func (s *SQLite) Create(ctx context.Context, collection string, data Record) (Record, error) {
	cs, err := schemaFor(collection)
	if err != nil {
		return nil, err
	}
	cols, args, err := insertColumns(cs, data)
	if err != nil {
		return nil, err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", cs.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if v, ok := data["id"]; ok {
		// Explicit ids (seeded roles) bypass the autoincrement counter.
		return s.FindOne(ctx, collection, Filter{"id": v}, FindOptions{})
	}
	return s.FindOne(ctx, collection, Filter{"id": id}, FindOptions{})
}

// DeleteMany removes all records matching the filter and reports how
// many rows were deleted. An empty filter clears the collection.
func (s *SQLite) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	cs, err := schemaFor(collection)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(cs, filter, qmarkPlaceholder)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", cs.table, where), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) populate(ctx context.Context, cs collectionSchema, rec Record) error {
	for field, rel := range cs.relations {
		fk := rec[rel.column]
		if fk == nil {
			continue
		}
		related, err := s.FindOne(ctx, rel.collection, Filter{"id": fk}, FindOptions{})
		if err != nil {
			if err == httpx.ErrNotFound {
				continue
			}
			return err
		}
		rec[field] = related
	}
	return nil
}

// rowScanner is satisfied by *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(rows rowScanner, cs collectionSchema) (Record, error) {
	dest := make([]any, len(cs.columns))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	rec := make(Record, len(cs.columns))
	for i, col := range cs.columns {
		v := *(dest[i].(*any))
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec[col] = v
	}
	return rec, nil
}

func qmarkPlaceholder(int) string { return "?" }

// buildWhere renders a deterministic WHERE clause from a filter. The
// filter's logical field names are resolved through the collection
// schema so relation fields hit their foreign-key columns.
func buildWhere(cs collectionSchema, filter Filter, placeholder func(int) string) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	fields := make([]string, 0, len(filter))
	for f := range filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var (
		clauses []string
		args    []any
		n       int
	)
	for _, field := range fields {
		column, err := cs.resolveField(field)
		if err != nil {
			return "", nil, err
		}
		value := filter[field]
		if value == nil {
			clauses = append(clauses, column+" IS NULL")
			continue
		}
		n++
		clauses = append(clauses, fmt.Sprintf("%s = %s", column, placeholder(n)))
		args = append(args, value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// insertColumns resolves the data map into column/value pairs, in
// deterministic order. Unknown fields are rejected rather than dropped.
func insertColumns(cs collectionSchema, data Record) ([]string, []any, error) {
	fields := make([]string, 0, len(data))
	for f := range data {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var cols []string
	var args []any
	for _, field := range fields {
		column, err := cs.resolveField(field)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, column)
		args = append(args, data[field])
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("store: create with no fields")
	}
	return cols, args, nil
}

var _ Gateway = (*SQLite)(nil)
