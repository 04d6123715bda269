// resolver_test.go: platform asset selection
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLibrary(t *testing.T) {
	tests := []struct {
		name       string
		platform   Platform
		groups     []AssetGroup
		wantRID    string
		wantReason AssetResolutionReason
	}{
		{
			name:       "no groups",
			platform:   linuxX64,
			wantReason: ReasonNoRuntimeTargets,
		},
		{
			name:     "single group matches any platform",
			platform: macARM64,
			groups:   []AssetGroup{nativeGroup("win-x86", "x86/a.dll")},
			wantRID:  "win-x86",
		},
		{
			name:     "os narrows to one",
			platform: linuxX64,
			groups: []AssetGroup{
				nativeGroup("win-x64", "a.dll"),
				nativeGroup("linux-x64", "liba.so"),
			},
			wantRID: "linux-x64",
		},
		{
			name:     "os match is case insensitive",
			platform: winX64,
			groups: []AssetGroup{
				nativeGroup("WIN-X64", "a.dll"),
				nativeGroup("linux-x64", "liba.so"),
			},
			wantRID: "WIN-X64",
		},
		{
			name:     "unix alias covers macOS",
			platform: macARM64,
			groups: []AssetGroup{
				nativeGroup("win-x64", "a.dll"),
				nativeGroup("unix", "liba.dylib"),
			},
			wantRID: "unix",
		},
		{
			name:     "no group for os",
			platform: macARM64,
			groups: []AssetGroup{
				nativeGroup("win-x64", "a.dll"),
				nativeGroup("linux-x64", "liba.so"),
			},
			wantReason: ReasonNoTargetForOS,
		},
		{
			name:     "architecture narrows to one",
			platform: linuxX64,
			groups: []AssetGroup{
				nativeGroup("linux-arm64", "arm64/liba.so"),
				nativeGroup("linux-x64", "x64/liba.so"),
				nativeGroup("win-x64", "a.dll"),
			},
			wantRID: "linux-x64",
		},
		{
			name:     "no group for architecture",
			platform: Platform{OS: OSLinux, Arch: "s390x"},
			groups: []AssetGroup{
				nativeGroup("linux-arm64", "arm64/liba.so"),
				nativeGroup("linux-x64", "x64/liba.so"),
			},
			wantReason: ReasonNoTargetForOSArchitecture,
		},
		{
			name:     "ambiguous without architecture",
			platform: Platform{OS: OSLinux, Arch: ""},
			groups: []AssetGroup{
				nativeGroup("linux-x64", "x64/liba.so"),
				nativeGroup("linux-arm64", "arm64/liba.so"),
			},
			wantReason: ReasonAmbiguous,
		},
		{
			name:     "ambiguous duplicates",
			platform: linuxX64,
			groups: []AssetGroup{
				nativeGroup("linux-x64", "one/liba.so"),
				nativeGroup("linux-musl-x64", "musl/liba.so"),
			},
			wantReason: ReasonAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &LibraryNode{Name: "DriverA", Version: "1.0.0", Native: tt.groups}
			r := NewAssetResolver(NewDependencyManifest("mem", lib), tt.platform)

			group, err := r.ResolveLibrary(lib, AssetNative)
			if tt.wantReason != "" {
				require.Error(t, err)
				assert.True(t, HasErrorCode(err, ErrCodeAssetResolution))
				reason, ok := AssetResolutionReasonOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantReason, reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRID, group.Runtime)
		})
	}
}

func TestResolveByName(t *testing.T) {
	lib := driverAFixture()
	r := NewAssetResolver(NewDependencyManifest("mem", lib), linuxX64)
	assert.Equal(t, linuxX64, r.Platform())

	got, group, err := r.Resolve("drivera", AssetNative)
	require.NoError(t, err)
	assert.Same(t, lib, got)
	assert.Equal(t, []string{"runtimes/linux-x64/native/liba.so"}, group.AssetPaths)

	_, group, err = r.Resolve("DriverA", AssetManaged)
	require.NoError(t, err)
	assert.Equal(t, "lib/drivera.so", group.AssetPaths[0])

	_, _, err = r.Resolve("Unknown", AssetNative)
	assert.True(t, HasErrorCode(err, ErrCodeLibraryNotFound))
}
