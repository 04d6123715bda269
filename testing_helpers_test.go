// testing_helpers_test.go: fakes and fixtures shared by the package tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var (
	linuxX64 = Platform{OS: OSLinux, Arch: "x64"}
	winX64   = Platform{OS: OSWindows, Arch: "x64"}
	macARM64 = Platform{OS: OSMacOS, Arch: "arm64"}
)

// fakeModule is an in-memory Module.
type fakeModule struct {
	path    string
	symbols map[string]any
}

func (m *fakeModule) Path() string { return m.path }

func (m *fakeModule) Lookup(symbol string) (any, error) {
	if v, ok := m.symbols[symbol]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("plugin: symbol %s not found in plugin %s", symbol, m.path)
}

// fakeOpener serves fakeModules by file base name and counts opens.
type fakeOpener struct {
	mu      sync.Mutex
	symbols map[string]map[string]any
	opens   map[string]int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		symbols: make(map[string]map[string]any),
		opens:   make(map[string]int),
	}
}

func (o *fakeOpener) add(fileName string, symbols map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.symbols[fileName] = symbols
}

func (o *fakeOpener) Open(path string) (Module, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[path]++
	symbols, ok := o.symbols[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("plugin.Open(%q): cannot open shared object file", path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &fakeModule{path: path, symbols: symbols}, nil
}

func (o *fakeOpener) totalOpens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, n := range o.opens {
		total += n
	}
	return total
}

// recordingDriver is a database/sql driver remembering the process working
// directory at every Open.
type recordingDriver struct {
	mu      sync.Mutex
	opens   int
	dsns    []string
	cwds    []string
	openErr error
}

func (d *recordingDriver) Open(dsn string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.dsns = append(d.dsns, dsn)
	if wd, err := os.Getwd(); err == nil {
		d.cwds = append(d.cwds, wd)
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeConn{}, nil
}

func (d *recordingDriver) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *recordingDriver) workingDirs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.cwds))
	copy(out, d.cwds)
	return out
}

type fakeConn struct{}

func (*fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake: prepare not supported")
}
func (*fakeConn) Close() error { return nil }
func (*fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fake: transactions not supported")
}

// searchPathDriver accepts the native directory explicitly.
type searchPathDriver struct {
	recordingDriver
	searchPath string
}

func (d *searchPathDriver) SetNativeSearchPath(dir string) { d.searchPath = dir }

// writePackageFile creates root/<lib dir>/<asset> with content and returns
// the absolute path.
func writePackageFile(t *testing.T, root string, lib *LibraryNode, asset, content string) string {
	t.Helper()
	path := filepath.Join(root, lib.PackageDir(), filepath.FromSlash(asset))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create package directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write package file: %v", err)
	}
	return path
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// canonicalPath resolves symlinks so temp directories compare equal on
// hosts where the temp root is itself a link.
func canonicalPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("Failed to resolve %s: %v", path, err)
	}
	return resolved
}

func nativeGroup(rid, asset string) AssetGroup {
	return AssetGroup{Runtime: rid, AssetPaths: []string{asset}}
}

// driverAFixture is the manifest of the end-to-end scenario: DriverA with a
// portable module and Windows and Linux native builds.
func driverAFixture() *LibraryNode {
	return &LibraryNode{
		Name:    "DriverA",
		Version: "1.0.0",
		Managed: []AssetGroup{nativeGroup("", "lib/drivera.so")},
		Native: []AssetGroup{
			nativeGroup("win-x64", "runtimes/win-x64/native/a.dll"),
			nativeGroup("linux-x64", "runtimes/linux-x64/native/liba.so"),
		},
	}
}

// recordingAuditor keeps every audited event type.
type recordingAuditor struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAuditor) Audit(eventType, message string, context map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, eventType)
}

func (a *recordingAuditor) count(eventType string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e == eventType {
			n++
		}
	}
	return n
}
