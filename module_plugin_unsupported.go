// module_plugin_unsupported.go: module loading stub for hosts without Go plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !((linux || darwin || freebsd) && cgo)

package driverloader

import (
	"errors"
	"runtime"
)

var errPluginsUnsupported = errors.New("go plugins are not supported on " + runtime.GOOS + " or without cgo")

// PluginOpener reports that driver modules cannot be opened on this build.
// Drivers linked into the binary (see the builtin package) still resolve.
type PluginOpener struct{}

// Open implements ModuleOpener.
func (PluginOpener) Open(path string) (Module, error) {
	return nil, errPluginsUnsupported
}
