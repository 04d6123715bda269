// aliases.go: user facing driver names
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"sort"
	"strings"
)

// DriverDefinition says which manifest library defines a driver and which
// type name it is exported under.
type DriverDefinition struct {
	// Name is the canonical engine name, used in logs and errors.
	Name string `json:"name" yaml:"name"`
	// Library is the manifest library holding the driver module.
	Library string `json:"library" yaml:"library"`
	// TypeName is the exported symbol or registered database/sql name.
	TypeName string `json:"type" yaml:"type"`
	// VersionConstraint optionally restricts the library version.
	VersionConstraint string `json:"version,omitempty" yaml:"version,omitempty"`
}

// DriverAlias binds user facing names to a definition.
type DriverAlias struct {
	Names      []string         `json:"names" yaml:"names"`
	Definition DriverDefinition `json:"definition" yaml:"definition"`
}

// DriverAliasTable maps normalised driver names to definitions. A table is
// never modified after construction.
type DriverAliasTable struct {
	entries map[string]DriverDefinition
}

// NormalizeDriverName lower-cases name and strips spaces and dots, so that
// "MySQL.Data" and "mysqldata" are the same alias.
func NormalizeDriverName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	return strings.ReplaceAll(name, ".", "")
}

// NewDriverAliasTable builds a table. Later aliases win when names collide.
func NewDriverAliasTable(aliases ...DriverAlias) *DriverAliasTable {
	t := &DriverAliasTable{entries: make(map[string]DriverDefinition)}
	for _, a := range aliases {
		for _, name := range a.Names {
			if key := NormalizeDriverName(name); key != "" {
				t.entries[key] = a.Definition
			}
		}
	}
	return t
}

// With returns a new table holding the receiver's aliases plus extra.
func (t *DriverAliasTable) With(extra ...DriverAlias) *DriverAliasTable {
	out := &DriverAliasTable{entries: make(map[string]DriverDefinition, len(t.entries))}
	for k, v := range t.entries {
		out.entries[k] = v
	}
	for _, a := range extra {
		for _, name := range a.Names {
			if key := NormalizeDriverName(name); key != "" {
				out.entries[key] = a.Definition
			}
		}
	}
	return out
}

// Lookup returns the definition for a driver name.
func (t *DriverAliasTable) Lookup(name string) (DriverDefinition, error) {
	if def, ok := t.entries[NormalizeDriverName(name)]; ok {
		return def, nil
	}
	return DriverDefinition{}, NewUnknownDriverAliasError(name, t.Aliases())
}

// Aliases lists every known normalised alias, sorted.
func (t *DriverAliasTable) Aliases() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default driver definitions. Type names match the names the builtin
// package registers, so statically linked drivers are used when present.
var (
	SQLiteDriver    = DriverDefinition{Name: "SQLite", Library: "SQLite", TypeName: "sqlite"}
	MySQLDriver     = DriverDefinition{Name: "MySQL", Library: "MySqlConnector", TypeName: "mysql"}
	PostgresDriver  = DriverDefinition{Name: "PostgreSQL", Library: "Npgsql", TypeName: "pgx"}
	SQLServerDriver = DriverDefinition{Name: "SQLServer", Library: "SqlClient", TypeName: "sqlserver"}
	DuckDBDriver    = DriverDefinition{Name: "DuckDB", Library: "DuckDB", TypeName: "duckdb"}
)

// DefaultDriverAliases returns the built-in alias table.
func DefaultDriverAliases() *DriverAliasTable {
	return NewDriverAliasTable(
		DriverAlias{Names: []string{"sqlite", "sqlite3", "Microsoft.Data.Sqlite", "Microsoft.Sqlite", "System.Data.SQLite"}, Definition: SQLiteDriver},
		DriverAlias{Names: []string{"mysql", "mariadb", "MySQL.Data", "MySqlConnector"}, Definition: MySQLDriver},
		DriverAlias{Names: []string{"postgresql", "postgres", "npgsql", "pgx"}, Definition: PostgresDriver},
		DriverAlias{Names: []string{"sqlserver", "mssql", "SqlClient", "System.Data.SqlClient", "Microsoft.Data.SqlClient"}, Definition: SQLServerDriver},
		DriverAlias{Names: []string{"duckdb"}, Definition: DuckDBDriver},
	)
}
