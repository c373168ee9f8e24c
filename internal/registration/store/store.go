// Package store persists registrations. Stores are pure I/O: the uniqueness
// of email and the existence of the parent registration are enforced here
// and reported with sentinel errors; everything else belongs to the pipeline.
package store

import (
	"embed"

	"signup/pkg/platform/sentinel"
)

// Migrations holds the schema for PostgresStore.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the path of the SQL files inside Migrations.
const MigrationsDir = "migrations"

var (
	// ErrNotFound is returned when a registration id does not resolve.
	ErrNotFound = sentinel.ErrNotFound
	// ErrDuplicateEmail is returned when an insert violates email uniqueness.
	ErrDuplicateEmail = sentinel.ErrAlreadyUsed
)
