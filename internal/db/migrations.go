// Package db embeds the goose migrations so the migrate command and the
// integration tests run the same schema.
package db

import "embed"

// Migrations holds the SQL files under migrations/
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations
const MigrationsDir = "migrations"
