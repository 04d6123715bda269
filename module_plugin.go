// module_plugin.go: Go plugin backed module loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build (linux || darwin || freebsd) && cgo

package driverloader

import (
	"plugin"
)

// PluginOpener loads driver modules built with -buildmode=plugin.
type PluginOpener struct{}

// Open implements ModuleOpener.
func (PluginOpener) Open(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginModule{path: path, plugin: p}, nil
}

type pluginModule struct {
	path   string
	plugin *plugin.Plugin
}

func (m *pluginModule) Path() string { return m.path }

func (m *pluginModule) Lookup(symbol string) (any, error) {
	return m.plugin.Lookup(symbol)
}
