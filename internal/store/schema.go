package store

import "fmt"

// relation describes a to-one reference from one collection to another.
type relation struct {
	column     string
	collection string
}

// collectionSchema describes how a logical collection maps onto SQL.
type collectionSchema struct {
	table     string
	columns   []string
	relations map[string]relation
}

// Collections known to the gateway. Filter fields that name a relation
// are translated to its foreign-key column.
var collections = map[string]collectionSchema{
	"roles": {
		table:   "roles",
		columns: []string{"id", "name", "type"},
	},
	"users": {
		table:   "users",
		columns: []string{"id", "username", "email", "password", "provider", "confirmed", "role_id"},
		relations: map[string]relation{
			"role": {column: "role_id", collection: "roles"},
		},
	},
	"permissions": {
		table:   "permissions",
		columns: []string{"id", "role_id", "action", "enabled", "policy"},
		relations: map[string]relation{
			"role": {column: "role_id", collection: "roles"},
		},
	},
	"categories": {
		table:   "categories",
		columns: []string{"id", "name"},
	},
	"uploads": {
		table:   "uploads",
		columns: []string{"id", "name", "stored", "thumbnail", "mime", "size"},
	},
	"articles": {
		table:   "articles",
		columns: []string{"id", "title", "slug", "author_id", "category_id", "image_id"},
		relations: map[string]relation{
			"author":   {column: "author_id", collection: "users"},
			"category": {column: "category_id", collection: "categories"},
			"image":    {column: "image_id", collection: "uploads"},
		},
	},
}

// Schema is the DDL applied when a scratch SQLite database is created.
// PostgreSQL deployments are migrated out of band; the statements below
// deliberately stay inside the common subset of both dialects.
const Schema = `
CREATE TABLE IF NOT EXISTS roles (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT 'local',
	confirmed INTEGER NOT NULL DEFAULT 0,
	role_id INTEGER REFERENCES roles(id)
);
CREATE TABLE IF NOT EXISTS permissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	role_id INTEGER NOT NULL REFERENCES roles(id),
	action TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	policy TEXT NOT NULL DEFAULT '',
	UNIQUE(role_id, action)
);
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS uploads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	stored TEXT NOT NULL,
	thumbnail TEXT NOT NULL DEFAULT '',
	mime TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	slug TEXT NOT NULL DEFAULT '',
	author_id INTEGER REFERENCES users(id),
	category_id INTEGER REFERENCES categories(id),
	image_id INTEGER REFERENCES uploads(id)
);
`

func schemaFor(collection string) (collectionSchema, error) {
	cs, ok := collections[collection]
	if !ok {
		return collectionSchema{}, fmt.Errorf("store: unknown collection %q", collection)
	}
	return cs, nil
}

// resolveField maps a logical filter field to its SQL column.
func (cs collectionSchema) resolveField(field string) (string, error) {
	if rel, ok := cs.relations[field]; ok {
		return rel.column, nil
	}
	for _, col := range cs.columns {
		if col == field {
			return col, nil
		}
	}
	return "", fmt.Errorf("store: unknown field %q", field)
}
