// resolver.go: runtime asset selection for the host platform
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"strings"
)

// AssetResolver picks, for a library and asset kind, the single asset
// group that matches the platform. It never guesses: when the candidates
// cannot be narrowed to exactly one the resolution fails.
type AssetResolver struct {
	manifest *DependencyManifest
	platform Platform
}

// NewAssetResolver creates a resolver for the given manifest and platform.
func NewAssetResolver(manifest *DependencyManifest, platform Platform) *AssetResolver {
	return &AssetResolver{manifest: manifest, platform: platform}
}

// Platform returns the platform assets are resolved for.
func (r *AssetResolver) Platform() Platform { return r.platform }

// Resolve looks the library up by name and resolves its asset group.
func (r *AssetResolver) Resolve(libraryName string, kind AssetKind) (*LibraryNode, AssetGroup, error) {
	lib, err := r.manifest.FindLibrary(libraryName)
	if err != nil {
		return nil, AssetGroup{}, err
	}
	group, err := r.ResolveLibrary(lib, kind)
	if err != nil {
		return nil, AssetGroup{}, err
	}
	return lib, group, nil
}

// ResolveLibrary selects the asset group of lib for the resolver platform.
//
// Selection rules, each step ending the search as soon as one candidate
// is left:
//  1. no groups at all fails with no_runtime_targets
//  2. a single group is returned whatever its runtime identifier says
//  3. groups whose runtime contains an OS alias are kept, none fails with
//     no_target_for_os
//  4. of those, groups whose runtime contains "-<arch>" are kept, none
//     fails with no_target_for_os_architecture
//  5. several survivors fail with ambiguous
func (r *AssetResolver) ResolveLibrary(lib *LibraryNode, kind AssetKind) (AssetGroup, error) {
	groups := lib.Groups(kind)
	switch len(groups) {
	case 0:
		return AssetGroup{}, NewAssetResolutionError(lib.Name, kind, r.platform, ReasonNoRuntimeTargets)
	case 1:
		return groups[0], nil
	}

	byOS := filterGroups(groups, func(rid string) bool {
		for _, alias := range r.platform.OSAliases() {
			if strings.Contains(rid, alias) {
				return true
			}
		}
		return false
	})
	switch len(byOS) {
	case 0:
		return AssetGroup{}, NewAssetResolutionError(lib.Name, kind, r.platform, ReasonNoTargetForOS)
	case 1:
		return byOS[0], nil
	}

	suffix := "-" + strings.ToLower(r.platform.Arch)
	byArch := filterGroups(byOS, func(rid string) bool {
		return strings.Contains(rid, suffix)
	})
	switch len(byArch) {
	case 0:
		return AssetGroup{}, NewAssetResolutionError(lib.Name, kind, r.platform, ReasonNoTargetForOSArchitecture)
	case 1:
		return byArch[0], nil
	default:
		return AssetGroup{}, NewAssetResolutionError(lib.Name, kind, r.platform, ReasonAmbiguous)
	}
}

// filterGroups keeps the groups whose lower-cased runtime satisfies keep.
func filterGroups(groups []AssetGroup, keep func(rid string) bool) []AssetGroup {
	var out []AssetGroup
	for _, g := range groups {
		if keep(strings.ToLower(g.Runtime)) {
			out = append(out, g)
		}
	}
	return out
}
