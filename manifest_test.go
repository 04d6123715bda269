// manifest_test.go: manifest parsing, validation and library lookup
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const driverAManifestJSON = `{
  "root": "MigrationApp",
  "libraries": [
    {
      "name": "DriverA",
      "version": "1.0.0",
      "dependencies": {"NativeHelper": "^1.2.0"},
      "managed": [{"rid": "", "assets": ["lib/drivera.so"]}],
      "native": [
        {"rid": "win-x64", "assets": ["runtimes/win-x64/native/a.dll"]},
        {"rid": "linux-x64", "assets": ["runtimes/linux-x64/native/liba.so"]}
      ]
    },
    {
      "name": "NativeHelper",
      "version": "1.2.3",
      "path": "custom/helper",
      "native": [{"rid": "linux-x64", "assets": ["native/libhelper.so"]}]
    }
  ]
}`

const driverAManifestYAML = `
root: MigrationApp
libraries:
  - name: DriverA
    version: 1.0.0
    dependencies:
      NativeHelper: "1.2.3"
    managed:
      - rid: ""
        assets: [lib/drivera.so]
    native:
      - rid: linux-x64
        assets: [runtimes/linux-x64/native/liba.so]
        sha256:
          runtimes/linux-x64/native/liba.so: abcdef
  - name: NativeHelper
    version: 1.2.3
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest_JSON(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, "drivers.deps.json", driverAManifestJSON))
	require.NoError(t, err)

	assert.Equal(t, "MigrationApp", m.Root())
	assert.Len(t, m.Libraries(), 2)

	lib, err := m.FindLibrary("drivera")
	require.NoError(t, err)
	assert.Equal(t, "DriverA", lib.Name)
	assert.Equal(t, filepath.Join("drivera", "1.0.0"), lib.PackageDir())
	assert.Equal(t, []Dependency{{Name: "NativeHelper", Version: "^1.2.0"}}, lib.Dependencies)
	assert.Len(t, lib.Native, 2)
	assert.True(t, lib.HasNativeAssets())

	helper, err := m.FindLibrary("NATIVEHELPER")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("custom/helper"), helper.PackageDir())
	assert.Empty(t, m.DependencyConflicts())
}

func TestLoadManifest_YAML(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, "drivers.yaml", driverAManifestYAML))
	require.NoError(t, err)

	lib, err := m.FindLibrary("DriverA")
	require.NoError(t, err)
	require.Len(t, lib.Native, 1)
	assert.Equal(t, "abcdef", lib.Native[0].Checksums["runtimes/linux-x64/native/liba.so"])
	assert.False(t, mustFind(t, m, "NativeHelper").HasNativeAssets())
}

func mustFind(t *testing.T, m *DependencyManifest, name string) *LibraryNode {
	t.Helper()
	lib, err := m.FindLibrary(name)
	require.NoError(t, err)
	return lib
}

func TestLoadManifest_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed json", "m.json", `{"libraries": [`},
		{"empty document", "m.json", `{}`},
		{"unrelated document", "m.json", `{"foo": 1}`},
		{"empty libraries", "m.json", `{"root": "App", "libraries": []}`},
		{"yaml without libraries", "m.yaml", "root: App\n"},
		{"missing name", "m.json", `{"libraries": [{"version": "1.0.0"}]}`},
		{"missing version", "m.json", `{"libraries": [{"name": "A"}]}`},
		{"invalid version", "m.json", `{"libraries": [{"name": "A", "version": "one"}]}`},
		{"group without assets", "m.json", `{"libraries": [{"name": "A", "version": "1.0.0", "native": [{"rid": "linux-x64", "assets": []}]}]}`},
		{"duplicate names", "m.json", `{"libraries": [{"name": "A", "version": "1.0.0"}, {"name": "a", "version": "2.0.0"}]}`},
		{"malformed yaml", "m.yaml", "libraries: [\n  - name: A\n version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, HasErrorCode(err, ErrCodeManifestLoad), "got %v", err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.True(t, HasErrorCode(err, ErrCodeManifestLoad))
	})
}

func TestFindLibrary(t *testing.T) {
	m := NewDependencyManifest("mem",
		&LibraryNode{Name: "DriverA", Version: "1.0.0"},
		&LibraryNode{Name: "Dup", Version: "1.0.0"},
		&LibraryNode{Name: "DUP", Version: "2.0.0"},
	)

	lib, err := m.FindLibrary("DRIVERA")
	require.NoError(t, err)
	assert.Equal(t, "DriverA", lib.Name)

	_, err = m.FindLibrary("Missing")
	assert.True(t, HasErrorCode(err, ErrCodeLibraryNotFound))

	// Duplicates fail lookup as well as validation.
	_, err = m.FindLibrary("dup")
	assert.True(t, HasErrorCode(err, ErrCodeLibraryNotFound))
	assert.True(t, HasErrorCode(m.Validate(), ErrCodeManifestLoad))
}

func TestDependencyConflicts(t *testing.T) {
	m := NewDependencyManifest("mem",
		&LibraryNode{Name: "DriverA", Version: "1.0.0", Dependencies: []Dependency{
			{Name: "Helper", Version: ">=2.0.0"},
			{Name: "Other", Version: "1.0.0"},
			{Name: "Missing", Version: "1.0.0"},
			{Name: "Unconstrained"},
		}},
		&LibraryNode{Name: "Helper", Version: "1.5.0"},
		&LibraryNode{Name: "Other", Version: "1.0.0"},
		&LibraryNode{Name: "Unconstrained", Version: "0.1.0"},
	)

	conflicts := m.DependencyConflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, DependencyConflict{
		Library:    "DriverA",
		Dependency: "Helper",
		Constraint: ">=2.0.0",
		Actual:     "1.5.0",
	}, conflicts[0])
}
