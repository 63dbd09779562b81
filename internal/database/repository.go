package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Repository provides access to all engine tables. Individual concern files
// (deals, settings, state, history) hang their methods off this type.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository backed by the given database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Ping verifies database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
