// types.go: registry of driver types already present in the process
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"database/sql"
	"database/sql/driver"
	"slices"
	"sort"
	"sync"
)

// TypeRegistry records driver types available without loading a module:
// drivers linked into the binary and drivers loaded by earlier sessions.
//
// Types loaded from a library module are recorded under their qualified
// name, so two libraries exporting the same symbol never shadow each other.
// Bare names belong to drivers linked into the binary.
type TypeRegistry struct {
	mu          sync.RWMutex
	types       map[string]driver.Driver
	sqlTypes    map[string]driver.Driver
	useSQLNames bool
}

// NewTypeRegistry creates an empty registry that does not consult
// database/sql.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:    make(map[string]driver.Driver),
		sqlTypes: make(map[string]driver.Driver),
	}
}

var processTypes = &TypeRegistry{
	types:       make(map[string]driver.Driver),
	sqlTypes:    make(map[string]driver.Driver),
	useSQLNames: true,
}

// QualifiedTypeName is the registry name of typeName as defined by
// libraryName, e.g. "Driver, drivera".
func QualifiedTypeName(libraryName, typeName string) string {
	return typeName + ", " + normalizeLibraryName(libraryName)
}

// ProcessTypes returns the process-wide registry. Besides explicit
// registrations it finds any driver registered with database/sql.
func ProcessTypes() *TypeRegistry { return processTypes }

// RegisterType records a driver type in the process-wide registry.
func RegisterType(typeName string, d driver.Driver) {
	processTypes.Register(typeName, d)
}

// Register records d under typeName, replacing a previous entry.
func (r *TypeRegistry) Register(typeName string, d driver.Driver) {
	if d == nil {
		panic("driverloader: Register driver is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = d
}

// Resolve returns the driver type typeName of libraryName: the type a module
// of that library registered earlier, else a type registered under the bare
// name.
func (r *TypeRegistry) Resolve(libraryName, typeName string) (driver.Driver, bool) {
	r.mu.RLock()
	d, ok := r.types[QualifiedTypeName(libraryName, typeName)]
	r.mu.RUnlock()
	if ok {
		return d, true
	}
	return r.Lookup(typeName)
}

// Lookup returns the driver type registered under typeName.
func (r *TypeRegistry) Lookup(typeName string) (driver.Driver, bool) {
	r.mu.RLock()
	d, ok := r.types[typeName]
	if !ok {
		d, ok = r.sqlTypes[typeName]
	}
	r.mu.RUnlock()
	if ok {
		return d, true
	}
	if !r.useSQLNames || !slices.Contains(sql.Drivers(), typeName) {
		return nil, false
	}

	d, ok = sqlRegisteredDriver(typeName)
	if !ok {
		return nil, false
	}
	r.mu.Lock()
	r.sqlTypes[typeName] = d
	r.mu.Unlock()
	return d, true
}

// Names lists explicitly registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sqlRegisteredDriver recovers a driver registered with database/sql.
// sql.Open does not connect, but it does call OpenConnector("") on drivers
// implementing driver.DriverContext (go-duckdb opens an in-memory database
// there). Lookup caches the result so this happens once per name.
func sqlRegisteredDriver(name string) (driver.Driver, bool) {
	db, err := sql.Open(name, "")
	if err != nil {
		return nil, false
	}
	d := db.Driver()
	_ = db.Close()
	return d, d != nil
}

// asDriver accepts the symbol shapes a module may export a driver type as.
func asDriver(sym any) (driver.Driver, bool) {
	switch v := sym.(type) {
	case driver.Driver:
		return v, v != nil
	case *driver.Driver:
		if v == nil || *v == nil {
			return nil, false
		}
		return *v, true
	case func() driver.Driver:
		d := v()
		return d, d != nil
	default:
		return nil, false
	}
}
