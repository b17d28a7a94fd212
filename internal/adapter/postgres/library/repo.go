// Package library implements persistence for the tracked entities: authors,
// genres, books, readings, and user shelves. It is the entity-storage side of
// the system; the timeline and stats subsystems read entity state only
// through this package.
package library

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides entity persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new library repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}
