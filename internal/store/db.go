// Package store persists records with bun. Postgres is the production
// backend; SQLite serves local development and tests.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database for driver and wraps it in bun.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("store: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("store: open sqlite: %w", err)
		}
		// one writer at a time; in-memory databases also live per connection
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

var models = []any{
	(*domain.Admin)(nil),
	(*domain.Therapist)(nil),
	(*domain.Patient)(nil),
	(*domain.Session)(nil),
}

type index struct {
	model   any
	name    string
	columns []string
}

var indexes = []index{
	{(*domain.Patient)(nil), "patients_created_idx", []string{"created_at", "id"}},
	{(*domain.Patient)(nil), "patients_therapist_idx", []string{"assigned_therapist_id"}},
	{(*domain.Therapist)(nil), "therapists_created_idx", []string{"created_at", "id"}},
	{(*domain.Therapist)(nil), "therapists_specialization_idx", []string{"specialization"}},
	{(*domain.Session)(nil), "sessions_scheduled_idx", []string{"scheduled_at", "id"}},
	{(*domain.Session)(nil), "sessions_therapist_idx", []string{"therapist_id"}},
	{(*domain.Session)(nil), "sessions_patient_idx", []string{"patient_id"}},
}

// CreateSchema creates every table and index that does not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("store: create table for %T: %w", m, err)
		}
	}
	for _, ix := range indexes {
		_, err := db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store: create index %s: %w", ix.name, err)
		}
	}
	return nil
}
