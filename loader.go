// loader.go: driver type loading with per-session memoization
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// ResolvedDriver is a driver type ready to create connections. It is
// immutable once built.
type ResolvedDriver struct {
	typeName         string
	library          string
	modulePath       string
	stagingDirectory string
	driver           driver.Driver
	preloaded        bool
	loadedAt         time.Time
}

// TypeName is the symbol or registry name the driver was found under.
func (r *ResolvedDriver) TypeName() string { return r.typeName }

// Library is the manifest library defining the driver.
func (r *ResolvedDriver) Library() string { return r.library }

// ModulePath is the absolute path of the loaded module. Empty for
// preloaded drivers.
func (r *ResolvedDriver) ModulePath() string { return r.modulePath }

// StagingDirectory holds the native assets staged for the driver.
func (r *ResolvedDriver) StagingDirectory() string { return r.stagingDirectory }

// Driver returns the database/sql driver.
func (r *ResolvedDriver) Driver() driver.Driver { return r.driver }

// Preloaded reports whether the type was already present in the process.
func (r *ResolvedDriver) Preloaded() bool { return r.preloaded }

// LoadedAt is when the loader produced this value.
func (r *ResolvedDriver) LoadedAt() time.Time { return r.loadedAt }

// DriverLoader loads driver types out of the manifest. Results are memoized
// per library and type name, so a module is loaded at most once per loader.
type DriverLoader struct {
	manifest    *DependencyManifest
	resolver    *AssetResolver
	stager      *NativeDependencyStager
	workdir     *WorkingDirectory
	packageRoot string
	types       *TypeRegistry
	context     *LoadContext
	logger      Logger
	auditor     Auditor
	observer    func(SessionState)

	mu    sync.Mutex
	cache map[string]*ResolvedDriver
}

// LoaderOption customises a DriverLoader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	opener   ModuleOpener
	types    *TypeRegistry
	logger   Logger
	auditor  Auditor
	observer func(SessionState)
}

// WithModuleOpener replaces the Go plugin opener.
func WithModuleOpener(opener ModuleOpener) LoaderOption {
	return func(o *loaderOptions) { o.opener = opener }
}

// WithTypeRegistry replaces the process-wide type registry.
func WithTypeRegistry(types *TypeRegistry) LoaderOption {
	return func(o *loaderOptions) { o.types = types }
}

// WithLoaderLogger sets the loader logger.
func WithLoaderLogger(logger Logger) LoaderOption {
	return func(o *loaderOptions) { o.logger = logger }
}

// WithLoaderAuditor records every module loaded.
func WithLoaderAuditor(auditor Auditor) LoaderOption {
	return func(o *loaderOptions) { o.auditor = auditor }
}

// WithStateObserver is told about every loading stage reached.
func WithStateObserver(observer func(SessionState)) LoaderOption {
	return func(o *loaderOptions) { o.observer = observer }
}

// NewDriverLoader creates a loader for one session.
func NewDriverLoader(manifest *DependencyManifest, resolver *AssetResolver, stager *NativeDependencyStager, wd *WorkingDirectory, packageRoot string, opts ...LoaderOption) *DriverLoader {
	o := loaderOptions{opener: PluginOpener{}, types: ProcessTypes()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.auditor == nil {
		o.auditor = NoOpAuditor{}
	}

	l := &DriverLoader{
		manifest:    manifest,
		resolver:    resolver,
		stager:      stager,
		workdir:     wd,
		packageRoot: packageRoot,
		types:       o.types,
		logger:      NewLogger(o.logger),
		auditor:     o.auditor,
		observer:    o.observer,
		cache:       make(map[string]*ResolvedDriver),
	}
	l.context = NewLoadContext(o.opener, l.modulePath, l.logger)
	l.context.onLoad = l.auditModule
	return l
}

// LoadContext exposes the context modules of this loader are loaded in.
func (l *DriverLoader) LoadContext() *LoadContext { return l.context }

// LoadType returns the driver type typeName defined by libraryName.
//
// A type already known to the type registry, either linked into the binary
// or loaded earlier from a module of the same library, is returned as is. Otherwise the
// managed module is resolved for the host platform, native dependencies are
// staged into the working directory, and the module is loaded and searched
// for the type.
func (l *DriverLoader) LoadType(libraryName, typeName string) (*ResolvedDriver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := normalizeLibraryName(libraryName) + "\x00" + typeName
	if rd, ok := l.cache[key]; ok {
		return rd, nil
	}

	if d, ok := l.types.Resolve(libraryName, typeName); ok {
		l.logger.Debug("Driver type already present in process", "type", typeName, "library", libraryName)
		rd := &ResolvedDriver{
			typeName:         typeName,
			library:          libraryName,
			stagingDirectory: l.workdir.Path(),
			driver:           d,
			preloaded:        true,
			loadedAt:         timecache.CachedTime(),
		}
		l.cache[key] = rd
		l.notify(StateDriverTypeLoaded)
		return rd, nil
	}

	lib, group, err := l.resolver.Resolve(libraryName, AssetManaged)
	if err != nil {
		return nil, err
	}
	modulePath := l.assetPath(lib, group.AssetPaths[0])
	if err := verifyAsset(group, group.AssetPaths[0], modulePath); err != nil {
		return nil, err
	}
	l.notify(StateAssetsResolved)

	if _, err := l.stager.Stage(lib.Name, l.workdir); err != nil {
		return nil, err
	}
	l.notify(StateNativeDepsStaged)

	module, err := l.context.LoadFromPath(lib.Name, modulePath)
	if err != nil {
		return nil, err
	}

	sym, err := module.Lookup(typeName)
	if err != nil {
		return nil, NewDriverTypeNotFoundError(typeName, lib.Name, module.Path(), err)
	}
	d, ok := asDriver(sym)
	if !ok {
		return nil, NewDriverTypeNotFoundError(typeName, lib.Name, module.Path(),
			fmt.Errorf("symbol has type %T, want a database/sql/driver.Driver", sym))
	}
	l.types.Register(QualifiedTypeName(lib.Name, typeName), d)

	rd := &ResolvedDriver{
		typeName:         typeName,
		library:          lib.Name,
		modulePath:       module.Path(),
		stagingDirectory: l.workdir.Path(),
		driver:           d,
		loadedAt:         timecache.CachedTime(),
	}
	l.cache[key] = rd
	l.logger.Info("Driver type loaded", "type", typeName, "library", lib.Name, "version", lib.Version, "module", module.Path())
	l.notify(StateDriverTypeLoaded)
	return rd, nil
}

// modulePath is the resolve strategy of the load context: any library of
// the manifest resolves to its managed module for the host platform.
func (l *DriverLoader) modulePath(libraryName string) (string, error) {
	lib, group, err := l.resolver.Resolve(libraryName, AssetManaged)
	if err != nil {
		return "", err
	}
	path := l.assetPath(lib, group.AssetPaths[0])
	if err := verifyAsset(group, group.AssetPaths[0], path); err != nil {
		return "", err
	}
	return path, nil
}

func (l *DriverLoader) assetPath(lib *LibraryNode, asset string) string {
	return filepath.Join(l.packageRoot, lib.PackageDir(), filepath.FromSlash(asset))
}

func (l *DriverLoader) auditModule(libraryName string, m Module) {
	l.auditor.Audit(AuditModuleLoaded, "Driver module loaded", map[string]interface{}{
		"library": libraryName,
		"path":    m.Path(),
	})
}

func (l *DriverLoader) notify(state SessionState) {
	if l.observer != nil {
		l.observer(state)
	}
}
