// module.go: loadable driver modules and the per-session load context
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// InitSymbol is the optional symbol a driver module exports to receive a
// Resolver for its own library dependencies. Its type must be
// func(Resolver) error.
const InitSymbol = "DriverInit"

// Module is a driver module loaded into the process.
type Module interface {
	// Path is the absolute file the module was loaded from.
	Path() string
	// Lookup returns the exported symbol with the given name.
	Lookup(symbol string) (any, error)
}

// ModuleOpener is the platform primitive that loads a module from a path.
type ModuleOpener interface {
	Open(path string) (Module, error)
}

// ModuleOpenerFunc adapts a function to ModuleOpener.
type ModuleOpenerFunc func(path string) (Module, error)

// Open implements ModuleOpener.
func (f ModuleOpenerFunc) Open(path string) (Module, error) { return f(path) }

// Resolver hands out modules by library name, loading them on first use.
type Resolver interface {
	Resolve(libraryName string) (Module, error)
}

// ResolveFunc maps a library name to the absolute path of its module.
type ResolveFunc func(libraryName string) (string, error)

// LoadContext tracks the modules one session loaded. References a module
// makes to other libraries go through Resolve, which consults the session
// ResolveFunc only for libraries not loaded yet.
type LoadContext struct {
	opener  ModuleOpener
	resolve ResolveFunc
	logger  Logger
	onLoad  func(name string, m Module)

	mu      sync.Mutex
	modules map[string]Module
	byPath  map[string]Module
	names   map[string]string
}

// NewLoadContext creates a context loading modules with opener and
// resolving unknown library names with resolve.
func NewLoadContext(opener ModuleOpener, resolve ResolveFunc, logger Logger) *LoadContext {
	return &LoadContext{
		opener:  opener,
		resolve: resolve,
		logger:  NewLogger(logger),
		modules: make(map[string]Module),
		byPath:  make(map[string]Module),
		names:   make(map[string]string),
	}
}

// Resolve returns the module for libraryName, loading it through the
// resolve strategy the first time it is requested.
func (c *LoadContext) Resolve(libraryName string) (Module, error) {
	key := normalizeLibraryName(libraryName)
	c.mu.Lock()
	m, ok := c.modules[key]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	if c.resolve == nil {
		return nil, NewModuleLoadError(libraryName, "", fmt.Errorf("no resolve strategy configured"))
	}
	path, err := c.resolve(libraryName)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Resolving module reference", "library", libraryName, "path", path)
	return c.LoadFromPath(libraryName, path)
}

// LoadFromPath loads the module at path and records it under libraryName.
// A path already loaded in this context is not opened again. Once opened,
// a module exporting InitSymbol is handed the context as its Resolver.
func (c *LoadContext) LoadFromPath(libraryName, path string) (Module, error) {
	key := normalizeLibraryName(libraryName)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, NewModuleLoadError(libraryName, path, err)
	}

	c.mu.Lock()
	if m, ok := c.byPath[absPath]; ok {
		c.modules[key] = m
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	m, err := c.opener.Open(absPath)
	if err != nil {
		return nil, NewModuleLoadError(libraryName, absPath, err)
	}

	c.mu.Lock()
	c.modules[key] = m
	c.byPath[absPath] = m
	c.names[key] = libraryName
	c.mu.Unlock()

	if c.onLoad != nil {
		c.onLoad(libraryName, m)
	}
	if err := c.initialise(libraryName, m); err != nil {
		c.evict(key, absPath, m)
		return nil, err
	}
	return m, nil
}

// evict forgets a module whose initialisation failed so the next load opens
// it again.
func (c *LoadContext) evict(key, absPath string, m Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byPath[absPath] == m {
		delete(c.byPath, absPath)
	}
	if c.modules[key] == m {
		delete(c.modules, key)
		delete(c.names, key)
	}
}

func (c *LoadContext) initialise(libraryName string, m Module) error {
	sym, err := m.Lookup(InitSymbol)
	if err != nil || sym == nil {
		return nil
	}

	var init func(Resolver) error
	switch fn := sym.(type) {
	case func(Resolver) error:
		init = fn
	case *func(Resolver) error:
		if fn != nil {
			init = *fn
		}
	}
	if init == nil {
		c.logger.Warn("Ignoring init symbol with unexpected type",
			"library", libraryName, "type", fmt.Sprintf("%T", sym))
		return nil
	}
	if err := c.runInit(libraryName, init); err != nil {
		return NewModuleLoadError(libraryName, m.Path(), err)
	}
	return nil
}

func (c *LoadContext) runInit(libraryName string, init func(Resolver) error) (err error) {
	defer withDriverPanicRecover(&err, withStackRecover(c.logger, "Module init panicked", "library", libraryName))()
	return init(c)
}

// Loaded returns the names of the libraries loaded so far, sorted.
func (c *LoadContext) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
