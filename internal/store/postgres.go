package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// Postgres is a Gateway over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres gateway.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Find returns all records matching the filter.
func (p *Postgres) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Record, error) {
	cs, err := schemaFor(collection)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(cs, filter, dollarPlaceholder)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", strings.Join(cs.columns, ", "), cs.table, where)
	rows, err := p.pool.Query(ctx, query, args...)
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
			if err := p.populate(ctx, cs, rec); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// FindOne returns the first matching record or httpx.ErrNotFound.
func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, opts FindOptions) (Record, error) {
	records, err := p.Find(ctx, collection, filter, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, httpx.ErrNotFound
	}
	return records[0], nil
}

// Create inserts a record and returns it as stored.
func (p *Postgres) Create(ctx context.Context, collection string, data Record) (Record, error) {
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
		placeholders[i] = dollarPlaceholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		cs.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: duplicate value", httpx.ErrValidation)
		}
		return nil, err
	}
	return p.FindOne(ctx, collection, Filter{"id": id}, FindOptions{})
}

// DeleteMany removes all matching records and reports the count.
func (p *Postgres) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	cs, err := schemaFor(collection)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(cs, filter, dollarPlaceholder)
	if err != nil {
		return 0, err
	}
	tag, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", cs.table, where), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) populate(ctx context.Context, cs collectionSchema, rec Record) error {
	for field, rel := range cs.relations {
		fk := rec[rel.column]
		if fk == nil {
			continue
		}
		related, err := p.FindOne(ctx, rel.collection, Filter{"id": fk}, FindOptions{})
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				continue
			}
			return err
		}
		rec[field] = related
	}
	return nil
}

func dollarPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

var _ Gateway = (*Postgres)(nil)
