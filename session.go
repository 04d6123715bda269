// session.go: one resolve, stage, load and probe sequence
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// SessionState is the lifecycle position of a Session.
type SessionState int32

const (
	StateUnresolved SessionState = iota
	StateAssetsResolved
	StateNativeDepsStaged
	StateDriverTypeLoaded
	StateConnectionProbed
	StateReady
	StateError
)

// String returns the string representation of the session state
func (s SessionState) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateAssetsResolved:
		return "assets_resolved"
	case StateNativeDepsStaged:
		return "native_deps_staged"
	case StateDriverTypeLoaded:
		return "driver_type_loaded"
	case StateConnectionProbed:
		return "connection_probed"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// SessionEvent records a state transition.
type SessionEvent struct {
	State SessionState
	At    time.Time
}

// SessionOptions configures a Session. Only PackageRoot and one of
// ManifestPath or Manifest are required.
type SessionOptions struct {
	ManifestPath string
	Manifest     *DependencyManifest
	PackageRoot  string
	// TempRoot is the parent of the working directory, os.TempDir() when empty.
	TempRoot string

	Platform PlatformProbe
	Opener   ModuleOpener
	Types    *TypeRegistry
	Prober   NativeProber
	Logger   Logger
	Auditor  Auditor

	// CleanupOnClose removes the working directory in Close.
	CleanupOnClose bool
}

// Session drives one driver load for one migration run. It owns a working
// directory and memoizes the drivers it loads. Once a step fails the
// session stays in StateError and every later call returns that error.
type Session struct {
	id       string
	options  SessionOptions
	platform Platform
	manifest *DependencyManifest
	workdir  *WorkingDirectory
	loader   *DriverLoader
	factory  *ConnectionFactory
	logger   Logger
	auditor  Auditor

	mu      sync.Mutex
	state   SessionState
	err     error
	history []SessionEvent
	driver  *ResolvedDriver
	closed  bool
}

// NewSession probes the platform, loads the manifest and creates the
// working directory, in that order. An unsupported host fails before any
// file is touched.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Platform == nil {
		opts.Platform = HostPlatform
	}
	if opts.Opener == nil {
		opts.Opener = PluginOpener{}
	}
	if opts.Types == nil {
		opts.Types = ProcessTypes()
	}
	if opts.Auditor == nil {
		opts.Auditor = NoOpAuditor{}
	}

	id := uuid.NewString()
	logger := NewLogger(opts.Logger).With("session", id)

	platform, err := opts.Platform()
	if err != nil {
		logger.Error("Unsupported host platform", "error", err)
		return nil, err
	}

	manifest := opts.Manifest
	if manifest == nil {
		if opts.ManifestPath == "" {
			return nil, NewManifestLoadError("", "no manifest path configured", nil)
		}
		manifest, err = LoadManifest(opts.ManifestPath)
		if err != nil {
			logger.Error("Failed to load dependency manifest", "path", opts.ManifestPath, "error", err)
			return nil, err
		}
	}
	for _, c := range manifest.DependencyConflicts() {
		logger.Warn("Dependency version constraint not satisfied",
			"library", c.Library, "dependency", c.Dependency,
			"constraint", c.Constraint, "actual", c.Actual)
	}

	wd, err := CreateWorkingDirectory(opts.TempRoot)
	if err != nil {
		logger.Error("Failed to create working directory", "error", err)
		return nil, err
	}

	s := &Session{
		id:       id,
		options:  opts,
		platform: platform,
		manifest: manifest,
		workdir:  wd,
		logger:   logger,
		auditor:  opts.Auditor,
		state:    StateUnresolved,
		history:  []SessionEvent{{State: StateUnresolved, At: timecache.CachedTime()}},
	}

	resolver := NewAssetResolver(manifest, platform)
	stager := NewNativeDependencyStager(manifest, resolver, opts.PackageRoot,
		WithStagerLogger(logger), WithStagerAuditor(opts.Auditor))
	s.loader = NewDriverLoader(manifest, resolver, stager, wd, opts.PackageRoot,
		WithModuleOpener(opts.Opener),
		WithTypeRegistry(opts.Types),
		WithLoaderLogger(logger),
		WithLoaderAuditor(opts.Auditor),
		WithStateObserver(s.advance))
	s.factory = NewConnectionFactory(
		WithNativeProber(opts.Prober),
		WithFactoryLogger(logger),
		WithFactoryAuditor(opts.Auditor))

	logger.Info("Driver session created", "platform", platform.String(), "dir", wd.Path(), "manifest", manifest.Source())
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Platform returns the platform the session resolves assets for.
func (s *Session) Platform() Platform { return s.platform }

// Manifest returns the dependency manifest of the session.
func (s *Session) Manifest() *DependencyManifest { return s.manifest }

// WorkingDirectory returns the session staging directory.
func (s *Session) WorkingDirectory() *WorkingDirectory { return s.workdir }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session to StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// History returns every state transition in order.
func (s *Session) History() []SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionEvent, len(s.history))
	copy(out, s.history)
	return out
}

// LoadDriver loads the driver type typeName defined by libraryName. Calling
// it again with the same arguments returns the memoized driver.
func (s *Session) LoadDriver(libraryName, typeName string) (*ResolvedDriver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}

	rd, err := s.loader.LoadType(libraryName, typeName)
	if err != nil {
		return nil, s.fail(err)
	}
	s.driver = rd
	return rd, nil
}

// CreateConnection creates a connection from the last loaded driver.
func (s *Session) CreateConnection(ctx context.Context, connectionString string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.driver == nil {
		return nil, NewDriverInstantiationError("", "no driver loaded in session", nil)
	}
	return s.createConnection(ctx, s.driver, connectionString)
}

// Connect loads the driver of def and creates a connection from it.
func (s *Session) Connect(ctx context.Context, def DriverDefinition, connectionString string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}

	if err := s.checkVersion(def); err != nil {
		return nil, s.fail(err)
	}
	rd, err := s.loader.LoadType(def.Library, def.TypeName)
	if err != nil {
		return nil, s.fail(err)
	}
	s.driver = rd
	return s.createConnection(ctx, rd, connectionString)
}

func (s *Session) createConnection(ctx context.Context, rd *ResolvedDriver, connectionString string) (*Connection, error) {
	conn, err := s.factory.CreateConnection(ctx, rd, connectionString)
	if err != nil {
		return nil, s.fail(err)
	}
	s.advance(StateConnectionProbed)
	s.advance(StateReady)
	return conn, nil
}

// checkVersion enforces the optional version constraint of def against the
// manifest library. Definitions served by a preloaded type skip the check.
func (s *Session) checkVersion(def DriverDefinition) error {
	if def.VersionConstraint == "" {
		return nil
	}
	if _, ok := s.options.Types.Resolve(def.Library, def.TypeName); ok {
		return nil
	}
	constraint, err := semver.NewConstraint(def.VersionConstraint)
	if err != nil {
		return NewDriverInstantiationError(def.Name, "invalid version constraint "+def.VersionConstraint, err)
	}
	lib, err := s.manifest.FindLibrary(def.Library)
	if err != nil {
		return err
	}
	version, err := semver.NewVersion(lib.Version)
	if err != nil {
		return NewDriverInstantiationError(def.Name, "invalid library version "+lib.Version, err)
	}
	if !constraint.Check(version) {
		return NewDriverInstantiationError(def.Name,
			fmt.Sprintf("library %s %s does not satisfy %s", lib.Name, lib.Version, def.VersionConstraint), nil)
	}
	return nil
}

// Close ends the session. The working directory is removed only when
// CleanupOnClose is set.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.options.CleanupOnClose {
		return nil
	}
	if err := s.workdir.Remove(); err != nil {
		s.logger.Warn("Failed to remove working directory", "dir", s.workdir.Path(), "error", err)
		return err
	}
	return nil
}

// usable must be called with s.mu held.
func (s *Session) usable() error {
	if s.state == StateError {
		return s.err
	}
	if s.closed {
		return NewDriverInstantiationError("", "session is closed", nil)
	}
	return nil
}

// advance moves the session forward. Transitions never go backwards, so
// repeated loads served from the memo leave the state untouched. Must be
// called with s.mu held.
func (s *Session) advance(state SessionState) {
	if s.state == StateError || state <= s.state {
		return
	}
	s.state = state
	s.history = append(s.history, SessionEvent{State: state, At: timecache.CachedTime()})
	s.logger.Debug("Session state changed", "state", state.String())
}

// fail moves the session to StateError. Must be called with s.mu held.
func (s *Session) fail(err error) error {
	if s.state == StateError {
		return s.err
	}
	s.state = StateError
	s.err = err
	s.history = append(s.history, SessionEvent{State: StateError, At: timecache.CachedTime()})
	s.logger.Error("Driver session failed", "error", err)
	s.auditor.Audit(AuditSessionFailed, "Driver session failed", map[string]interface{}{
		"session": s.id,
		"error":   err.Error(),
	})
	return err
}
