// probe.go: forced native load with the staging directory in scope
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"context"
	"os"
	"sync"
)

// NativeSearchPathAware is implemented by drivers that accept the native
// library directory explicitly. Such drivers are never probed under a
// changed working directory.
type NativeSearchPathAware interface {
	SetNativeSearchPath(dir string)
}

// NativeProber runs probe while native libraries in dir are resolvable.
type NativeProber interface {
	Probe(ctx context.Context, dir string, probe func(context.Context) error) error
}

// cwdMu serialises every working directory switch in the process. The
// working directory is process global, so two probes must never overlap.
var cwdMu sync.Mutex

// WorkingDirectoryProber makes dir the process working directory for the
// duration of the probe and restores the previous one on every exit path.
type WorkingDirectoryProber struct{}

// Probe implements NativeProber.
func (WorkingDirectoryProber) Probe(ctx context.Context, dir string, probe func(context.Context) error) error {
	cwdMu.Lock()
	defer cwdMu.Unlock()

	previous, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return err
	}
	defer func() { _ = os.Chdir(previous) }()

	return probe(ctx)
}
