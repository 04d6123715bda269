// duckdb.go: DuckDB driver, compiled in with -tags duckdb
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build cgo && duckdb

package builtin

import (
	"github.com/marcboeker/go-duckdb"
)

var _ = addDriver(DuckDBType, duckdb.Driver{})
