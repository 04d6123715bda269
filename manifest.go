// manifest.go: dependency manifest parsing and library lookup
//
// The dependency manifest describes every library a driver needs: its
// version, where its package lives under the package root, which other
// libraries it depends on, and the platform-specific variants of its
// managed module and native assets.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// AssetKind selects which asset groups of a library are resolved.
type AssetKind string

const (
	// AssetManaged is the loadable driver module itself.
	AssetManaged AssetKind = "managed"
	// AssetNative is a platform shared library the module depends on.
	AssetNative AssetKind = "native"
)

// AssetGroup is one platform-specific variant of a library asset.
type AssetGroup struct {
	// Runtime is the runtime identifier, e.g. "linux-x64". Empty for
	// portable assets.
	Runtime string `json:"rid" yaml:"rid"`

	// AssetPaths are slash separated and relative to the library package
	// directory. The first entry is authoritative.
	AssetPaths []string `json:"assets" yaml:"assets"`

	// Checksums optionally maps an asset path to its hex SHA-256 digest.
	Checksums map[string]string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// Dependency is an edge of the library graph.
type Dependency struct {
	Name string
	// Version is an optional semver constraint on the target library.
	Version string
}

// LibraryNode is one library of the dependency manifest.
type LibraryNode struct {
	Name         string
	Version      string
	Path         string
	Dependencies []Dependency
	Managed      []AssetGroup
	Native       []AssetGroup
}

// Groups returns the asset groups of the given kind.
func (l *LibraryNode) Groups(kind AssetKind) []AssetGroup {
	if kind == AssetNative {
		return l.Native
	}
	return l.Managed
}

// HasNativeAssets reports whether the library carries a native payload.
func (l *LibraryNode) HasNativeAssets() bool {
	return len(l.Native) > 0
}

// PackageDir is the library's directory relative to the package root.
func (l *LibraryNode) PackageDir() string {
	if l.Path != "" {
		return filepath.FromSlash(l.Path)
	}
	return filepath.Join(strings.ToLower(l.Name), l.Version)
}

// DependencyManifest is the parsed library graph. It is read-only once
// built and safe to share between goroutines.
type DependencyManifest struct {
	source    string
	root      string
	libraries []*LibraryNode
	index     map[string][]*LibraryNode
}

// DependencyConflict describes an edge whose version constraint the target
// library does not satisfy.
type DependencyConflict struct {
	Library    string
	Dependency string
	Constraint string
	Actual     string
}

type manifestDocument struct {
	Root      string            `json:"root,omitempty" yaml:"root,omitempty"`
	Libraries []libraryDocument `json:"libraries" yaml:"libraries"`
}

type libraryDocument struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Path         string            `json:"path,omitempty" yaml:"path,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Managed      []AssetGroup      `json:"managed,omitempty" yaml:"managed,omitempty"`
	Native       []AssetGroup      `json:"native,omitempty" yaml:"native,omitempty"`
}

// normalizeLibraryName is the case-insensitive key libraries are indexed by.
func normalizeLibraryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewDependencyManifest builds a manifest from already constructed nodes.
// No validation is performed; call Validate when the input is untrusted.
func NewDependencyManifest(source string, libraries ...*LibraryNode) *DependencyManifest {
	m := &DependencyManifest{
		source:    source,
		libraries: libraries,
		index:     make(map[string][]*LibraryNode, len(libraries)),
	}
	for _, lib := range libraries {
		key := normalizeLibraryName(lib.Name)
		m.index[key] = append(m.index[key], lib)
	}
	return m
}

// LoadManifest reads and validates the manifest at path. The format is
// detected from the file extension.
func LoadManifest(path string) (*DependencyManifest, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - manifest path is operator supplied
	if err != nil {
		return nil, NewManifestLoadError(path, "file cannot be read", err)
	}
	return ParseManifest(data, argus.DetectFormat(cleanPath), cleanPath)
}

// ParseManifest parses manifest bytes in the given format. source is only
// used for error reporting and Source().
func ParseManifest(data []byte, format argus.ConfigFormat, source string) (*DependencyManifest, error) {
	var doc manifestDocument
	if err := parseManifestDocument(data, format, &doc); err != nil {
		return nil, NewManifestLoadError(source, fmt.Sprintf("not a valid %s document", format), err)
	}
	if len(doc.Libraries) == 0 {
		return nil, NewManifestLoadError(source, "document lists no libraries", nil)
	}

	libraries := make([]*LibraryNode, 0, len(doc.Libraries))
	for _, ld := range doc.Libraries {
		libraries = append(libraries, ld.node())
	}

	m := NewDependencyManifest(source, libraries...)
	m.root = doc.Root
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseManifestDocument follows the hybrid strategy used for configuration:
// yaml.v3 for YAML, argus for everything else.
func parseManifestDocument(data []byte, format argus.ConfigFormat, doc *manifestDocument) error {
	if format == argus.FormatYAML {
		return yaml.Unmarshal(data, doc)
	}

	parsed, err := argus.ParseConfig(data, format)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, doc)
}

func (d libraryDocument) node() *LibraryNode {
	deps := make([]Dependency, 0, len(d.Dependencies))
	for name, version := range d.Dependencies {
		deps = append(deps, Dependency{Name: name, Version: version})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	return &LibraryNode{
		Name:         d.Name,
		Version:      d.Version,
		Path:         d.Path,
		Dependencies: deps,
		Managed:      d.Managed,
		Native:       d.Native,
	}
}

// Validate checks the graph is well formed: every library has a name and a
// semantic version, every asset group lists at least one asset, and no two
// libraries share a name.
func (m *DependencyManifest) Validate() error {
	for i, lib := range m.libraries {
		if strings.TrimSpace(lib.Name) == "" {
			return NewManifestLoadError(m.source, fmt.Sprintf("library #%d has no name", i), nil)
		}
		if lib.Version == "" {
			return NewManifestLoadError(m.source, fmt.Sprintf("library %s has no version", lib.Name), nil)
		}
		if _, err := semver.NewVersion(lib.Version); err != nil {
			return NewManifestLoadError(m.source, fmt.Sprintf("library %s has an invalid version %q", lib.Name, lib.Version), err)
		}
		if err := validateGroups(lib, AssetManaged); err != nil {
			return NewManifestLoadError(m.source, err.Error(), nil)
		}
		if err := validateGroups(lib, AssetNative); err != nil {
			return NewManifestLoadError(m.source, err.Error(), nil)
		}
		if n := len(m.index[normalizeLibraryName(lib.Name)]); n > 1 {
			return NewManifestLoadError(m.source, fmt.Sprintf("library %s is declared %d times", lib.Name, n), nil)
		}
	}
	return nil
}

func validateGroups(lib *LibraryNode, kind AssetKind) error {
	for _, g := range lib.Groups(kind) {
		if len(g.AssetPaths) == 0 {
			return fmt.Errorf("library %s has a %s group for %q without assets", lib.Name, kind, g.Runtime)
		}
	}
	return nil
}

// FindLibrary returns the single library whose name matches
// case-insensitively. Absent and duplicated names both fail.
func (m *DependencyManifest) FindLibrary(name string) (*LibraryNode, error) {
	matches := m.index[normalizeLibraryName(name)]
	if len(matches) != 1 {
		return nil, NewLibraryNotFoundError(name, m.source, len(matches))
	}
	return matches[0], nil
}

// Libraries returns the libraries in declaration order.
func (m *DependencyManifest) Libraries() []*LibraryNode {
	out := make([]*LibraryNode, len(m.libraries))
	copy(out, m.libraries)
	return out
}

// Root is the name of the requesting application, if the manifest names one.
func (m *DependencyManifest) Root() string { return m.root }

// Source is the path the manifest was loaded from.
func (m *DependencyManifest) Source() string { return m.source }

// DependencyConflicts lists edges whose version constraint is not met by
// the library the manifest actually carries. Edges to absent libraries
// and unparseable constraints are ignored here; staging reports the former.
func (m *DependencyManifest) DependencyConflicts() []DependencyConflict {
	var conflicts []DependencyConflict
	for _, lib := range m.libraries {
		for _, dep := range lib.Dependencies {
			if dep.Version == "" {
				continue
			}
			target, err := m.FindLibrary(dep.Name)
			if err != nil {
				continue
			}
			if !versionSatisfies(target.Version, dep.Version) {
				conflicts = append(conflicts, DependencyConflict{
					Library:    lib.Name,
					Dependency: dep.Name,
					Constraint: dep.Version,
					Actual:     target.Version,
				})
			}
		}
	}
	return conflicts
}

// versionSatisfies reports whether version meets constraint. Malformed
// input never produces a conflict.
func versionSatisfies(version, constraint string) bool {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return true
	}
	return c.Check(v)
}
