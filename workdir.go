// workdir.go: per-session staging directory for native assets
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const workingDirectoryPrefix = "driverloader-"

// WorkingDirectory is the ephemeral directory native assets are staged into.
// Each session owns exactly one and no two sessions share a path.
type WorkingDirectory struct {
	path string
}

// CreateWorkingDirectory creates a uniquely named directory under tempRoot,
// or under os.TempDir() when tempRoot is empty.
func CreateWorkingDirectory(tempRoot string) (*WorkingDirectory, error) {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	path := filepath.Join(tempRoot, workingDirectoryPrefix+uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, NewWorkingDirectoryCreationError(path, err)
	}
	return &WorkingDirectory{path: path}, nil
}

// Path returns the absolute directory path.
func (w *WorkingDirectory) Path() string { return w.path }

// Contains reports whether a file with the given base name is staged.
func (w *WorkingDirectory) Contains(name string) bool {
	_, err := os.Lstat(filepath.Join(w.path, name))
	return err == nil
}

// Stage copies src into the directory under its base name unless a file of
// that name is already present. It reports whether a copy happened.
func (w *WorkingDirectory) Stage(src string) (bool, error) {
	dest := filepath.Join(w.path, filepath.Base(src))
	if w.Contains(filepath.Base(src)) {
		return false, nil
	}

	in, err := os.Open(filepath.Clean(src)) // #nosec G304 - source comes from the package root
	if err != nil {
		return false, err
	}
	defer func() { _ = in.Close() }()

	// O_EXCL turns "already staged" into a cheap existence check.
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 - destination is inside the working directory
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return false, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return false, err
	}
	return true, nil
}

// Remove deletes the directory and everything staged in it. Callers must
// close every connection relying on the staged libraries first.
func (w *WorkingDirectory) Remove() error {
	return os.RemoveAll(w.path)
}
