// Package db embeds the SQL migrations.
package db

import "embed"

// Migrations holds the numbered DDL files, applied in name order.
//
//go:embed migrations/*.sql
var Migrations embed.FS
