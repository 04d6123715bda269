// builtin.go: statically linked drivers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package builtin links pure Go database drivers into the binary and
// registers them as types already present in the process, so sessions use
// them without loading a driver module.
//
// Import it for its side effect:
//
//	import _ "github.com/agilira/go-driverloader/builtin"
//
// PostgreSQL (pgx) and SQLite (modernc.org/sqlite) are always included.
// DuckDB needs cgo and the duckdb build tag.
package builtin

import (
	"database/sql/driver"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"

	driverloader "github.com/agilira/go-driverloader"
)

// Type names under which the builtin drivers are registered. They match the
// type names of the default driver aliases.
const (
	PostgresType = "pgx"
	SQLiteType   = "sqlite"
	DuckDBType   = "duckdb"
)

var (
	mu      sync.Mutex
	drivers = map[string]driver.Driver{
		PostgresType: stdlib.GetDefaultDriver(),
		SQLiteType:   &sqlite.Driver{},
	}
)

func init() {
	Register(driverloader.ProcessTypes())
}

// addDriver is used by optional drivers compiled in through build tags.
// They call it from a package level variable so the driver is known before
// init registers the set.
func addDriver(name string, d driver.Driver) bool {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = d
	return true
}

// Register records every builtin driver in registry.
func Register(registry *driverloader.TypeRegistry) {
	mu.Lock()
	defer mu.Unlock()
	for name, d := range drivers {
		registry.Register(name, d)
	}
}

// Names lists the builtin type names compiled into this binary.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
