// Package store implements the collection-oriented query gateway the
// access-control layer delegates persistence to. Two drivers are
// provided: SQLite (scratch-file databases, used by the integration
// harness) and PostgreSQL.
package store

import (
	"context"
)

// Record is a single row of a collection, keyed by logical field name.
// Populated relations appear as nested Records under the relation field.
type Record map[string]any

// FindOptions controls relation expansion for read operations.
type FindOptions struct {
	// Populate expands relation fields into nested records.
	Populate bool
}

// Gateway is the data-query service consumed by the access-control
// core. The only transactional guarantee assumed by callers is
// read-your-writes within a single request or test sequence.
type Gateway interface {
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Record, error)
	FindOne(ctx context.Context, collection string, filter Filter, opts FindOptions) (Record, error)
	Create(ctx context.Context, collection string, data Record) (Record, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
}

// Int64 reads an integer field, tolerating driver-specific scan types.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Str reads a string field.
func (r Record) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Bool reads a boolean field. SQLite surfaces booleans as integers.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Rel reads a populated relation field.
func (r Record) Rel(key string) Record {
	rel, _ := r[key].(Record)
	return rel
}
