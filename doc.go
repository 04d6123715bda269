// Package driverloader loads database drivers for a schema migration tool at
// runtime, without linking every driver into the binary.
//
// A dependency manifest lists the driver libraries, their dependencies and
// the platform specific variants of their assets. For the requested driver
// the loader:
//   - picks the asset variant matching the host OS and CPU architecture
//   - copies the native shared libraries of the driver and of its transitive
//     dependencies into a private working directory
//   - opens the driver module (a Go plugin) and looks up the driver type
//   - creates a connection, probing it once with the working directory in
//     scope so native libraries get resolved from there
//
// Drivers already present in the process, either registered with
// database/sql or linked in through the builtin package, are used directly.
//
// Basic Usage:
//
//	session, err := driverloader.NewSession(driverloader.SessionOptions{
//		ManifestPath: "drivers.deps.json",
//		PackageRoot:  "/opt/migrate/packages",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	def, err := driverloader.DefaultDriverAliases().Lookup("postgresql")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	conn, err := session.Connect(ctx, def, "postgres://localhost/app")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
// Errors:
// Every failure is a structured github.com/agilira/go-errors error with one
// code per stage (manifest, platform, staging, type loading, connection).
// Use HasErrorCode or AssetResolutionReasonOf to branch on them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package driverloader
