// platform.go: host platform probing and runtime identifier aliases
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"runtime"
)

// OSFamily is one of the host operating system families drivers are
// published for.
type OSFamily string

const (
	OSWindows OSFamily = "windows"
	OSLinux   OSFamily = "linux"
	OSMacOS   OSFamily = "macos"
)

// Platform identifies the host a driver build must match.
type Platform struct {
	OS OSFamily
	// Arch uses runtime identifier spelling (x64, x86, arm64, arm).
	Arch string
}

// String renders the platform as a runtime identifier prefix, e.g. "linux-x64".
func (p Platform) String() string {
	aliases := p.OSAliases()
	if len(aliases) == 0 {
		return string(p.OS) + "-" + p.Arch
	}
	return aliases[0] + "-" + p.Arch
}

// OSAliases returns the runtime identifier fragments accepted for the OS
// family, most specific first.
func (p Platform) OSAliases() []string {
	switch p.OS {
	case OSWindows:
		return []string{"win"}
	case OSLinux:
		return []string{"linux", "unix"}
	case OSMacOS:
		return []string{"osx", "unix"}
	default:
		return nil
	}
}

// PlatformProbe reports the platform sessions resolve assets for. Tests
// replace it to simulate other hosts.
type PlatformProbe func() (Platform, error)

// HostPlatform probes the running process.
func HostPlatform() (Platform, error) {
	return DetectPlatform(runtime.GOOS, runtime.GOARCH)
}

// StaticPlatform returns a probe that always reports p.
func StaticPlatform(p Platform) PlatformProbe {
	return func() (Platform, error) { return p, nil }
}

// DetectPlatform maps Go's GOOS/GOARCH pair to a Platform. Hosts other
// than Windows, Linux and macOS are rejected.
func DetectPlatform(goos, goarch string) (Platform, error) {
	var family OSFamily
	switch goos {
	case "windows":
		family = OSWindows
	case "linux":
		family = OSLinux
	case "darwin":
		family = OSMacOS
	default:
		return Platform{}, NewUnsupportedPlatformError(goos, goarch)
	}
	return Platform{OS: family, Arch: ridArch(goarch)}, nil
}

func ridArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		// arm64, arm, s390x, ppc64le and friends share their RID spelling.
		return goarch
	}
}
