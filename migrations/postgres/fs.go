// Package pgmigrations embeds the Postgres schema for the confirmation event log.
package pgmigrations

import "embed"

//go:embed sql/*.up.sql
var FS embed.FS
