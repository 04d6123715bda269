// platform_test.go: GOOS/GOARCH mapping and runtime identifier aliases
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         Platform
		wantString   string
	}{
		{"linux", "amd64", Platform{OS: OSLinux, Arch: "x64"}, "linux-x64"},
		{"windows", "386", Platform{OS: OSWindows, Arch: "x86"}, "win-x86"},
		{"darwin", "arm64", Platform{OS: OSMacOS, Arch: "arm64"}, "osx-arm64"},
		{"linux", "arm", Platform{OS: OSLinux, Arch: "arm"}, "linux-arm"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := DetectPlatform(tt.goos, tt.goarch)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if got.String() != tt.wantString {
				t.Errorf("Expected %q, got %q", tt.wantString, got.String())
			}
		})
	}
}

func TestDetectPlatformUnsupported(t *testing.T) {
	for _, goos := range []string{"freebsd", "plan9", "js"} {
		_, err := DetectPlatform(goos, "amd64")
		if !HasErrorCode(err, ErrCodeUnsupportedPlatform) {
			t.Errorf("%s: expected %s, got %v", goos, ErrCodeUnsupportedPlatform, err)
		}
	}
}

func TestOSAliases(t *testing.T) {
	if got := linuxX64.OSAliases(); len(got) != 2 || got[0] != "linux" || got[1] != "unix" {
		t.Errorf("Unexpected linux aliases %v", got)
	}
	if got := macARM64.OSAliases(); len(got) != 2 || got[0] != "osx" || got[1] != "unix" {
		t.Errorf("Unexpected macOS aliases %v", got)
	}
	if got := winX64.OSAliases(); len(got) != 1 || got[0] != "win" {
		t.Errorf("Unexpected windows aliases %v", got)
	}
	if got := (Platform{OS: "beos", Arch: "x86"}).String(); got != "beos-x86" {
		t.Errorf("Unknown families render verbatim, got %q", got)
	}
}

func TestStaticPlatform(t *testing.T) {
	p, err := StaticPlatform(winX64)()
	if err != nil || p != winX64 {
		t.Errorf("Expected %v, got %v (%v)", winX64, p, err)
	}
}
