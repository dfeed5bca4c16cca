// Package db carries the schema migrations so binaries can apply them
// without a checkout next to them.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsPath is the directory inside Migrations.
const MigrationsPath = "migrations"
