// stager.go: recursive staging of native dependencies
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"fmt"
	"os"
	"path/filepath"
)

// StageResult lists what one staging pass did.
type StageResult struct {
	// Copied holds base names newly written to the working directory.
	Copied []string
	// Skipped holds base names that were already present.
	Skipped []string
	// Visited holds library names in visit order.
	Visited []string
}

// NativeDependencyStager copies the native assets of a library and of its
// transitive dependencies into a working directory, so the platform loader
// finds them when the driver module initialises.
type NativeDependencyStager struct {
	manifest    *DependencyManifest
	resolver    *AssetResolver
	packageRoot string
	logger      Logger
	auditor     Auditor
}

// StagerOption customises a NativeDependencyStager.
type StagerOption func(*NativeDependencyStager)

// WithStagerLogger sets the stager logger.
func WithStagerLogger(logger Logger) StagerOption {
	return func(s *NativeDependencyStager) { s.logger = NewLogger(logger) }
}

// WithStagerAuditor records every copied asset.
func WithStagerAuditor(auditor Auditor) StagerOption {
	return func(s *NativeDependencyStager) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

// NewNativeDependencyStager creates a stager reading packages below packageRoot.
func NewNativeDependencyStager(manifest *DependencyManifest, resolver *AssetResolver, packageRoot string, opts ...StagerOption) *NativeDependencyStager {
	s := &NativeDependencyStager{
		manifest:    manifest,
		resolver:    resolver,
		packageRoot: packageRoot,
		logger:      NewNoOpLogger(),
		auditor:     NoOpAuditor{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage walks the graph rooted at libraryName and copies the first native
// asset of every library that has one. Files already present are left
// untouched, so staging twice is harmless. Any failure aborts the walk with
// a NativeDependencyMissingError.
func (s *NativeDependencyStager) Stage(libraryName string, wd *WorkingDirectory) (*StageResult, error) {
	result := &StageResult{}
	visited := make(map[string]bool)
	if err := s.stageLibrary(libraryName, wd, visited, result); err != nil {
		return result, NewNativeDependencyMissingError(libraryName, err)
	}
	s.logger.Debug("Native dependencies staged",
		"library", libraryName,
		"copied", len(result.Copied),
		"skipped", len(result.Skipped),
		"dir", wd.Path())
	return result, nil
}

func (s *NativeDependencyStager) stageLibrary(name string, wd *WorkingDirectory, visited map[string]bool, result *StageResult) error {
	key := normalizeLibraryName(name)
	if visited[key] {
		return nil
	}
	visited[key] = true

	lib, err := s.manifest.FindLibrary(name)
	if err != nil {
		return err
	}
	result.Visited = append(result.Visited, lib.Name)

	if lib.HasNativeAssets() {
		if err := s.stageNativeAsset(lib, wd, result); err != nil {
			return err
		}
	}

	for _, dep := range lib.Dependencies {
		if err := s.stageLibrary(dep.Name, wd, visited, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *NativeDependencyStager) stageNativeAsset(lib *LibraryNode, wd *WorkingDirectory, result *StageResult) error {
	group, err := s.resolver.ResolveLibrary(lib, AssetNative)
	if err != nil {
		return err
	}

	asset := group.AssetPaths[0]
	src := filepath.Join(s.packageRoot, lib.PackageDir(), filepath.FromSlash(asset))
	name := filepath.Base(src)

	if wd.Contains(name) {
		result.Skipped = append(result.Skipped, name)
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("native asset %s of %s: %w", src, lib.Name, err)
	}
	if err := verifyAsset(group, asset, src); err != nil {
		return err
	}

	copied, err := wd.Stage(src)
	if err != nil {
		return fmt.Errorf("copy %s into %s: %w", src, wd.Path(), err)
	}
	if !copied {
		result.Skipped = append(result.Skipped, name)
		return nil
	}

	result.Copied = append(result.Copied, name)
	s.auditor.Audit(AuditNativeAssetStaged, "Native asset staged", map[string]interface{}{
		"library": lib.Name,
		"version": lib.Version,
		"runtime": group.Runtime,
		"source":  src,
		"dir":     wd.Path(),
	})
	return nil
}
