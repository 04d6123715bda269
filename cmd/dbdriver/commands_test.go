// commands_test.go: dbdriver command line
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	driverloader "github.com/agilira/go-driverloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "libraries": [
    {
      "name": "DriverA",
      "version": "1.0.0",
      "path": "drivera",
      "managed": [{"rid": "", "assets": ["lib/drivera.so"]}],
      "native": [
        {"rid": "win-x64", "assets": ["runtimes/win-x64/native/a.dll"]},
        {"rid": "linux-x64", "assets": ["runtimes/linux-x64/native/liba.so"]}
      ]
    }
  ]
}`

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drivers.deps.json")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))
	return path
}

func TestResolveCommand(t *testing.T) {
	manifest := writeTestManifest(t)

	out, _, err := runCommand(t, "resolve", "DriverA", "--manifest", manifest, "--os", "linux", "--arch", "amd64")
	require.NoError(t, err)
	assert.Contains(t, out, "DriverA 1.0.0 on linux-x64: linux-x64")
	assert.Contains(t, out, "runtimes/linux-x64/native/liba.so")

	out, _, err = runCommand(t, "resolve", "DriverA", "--manifest", manifest, "--kind", "managed", "--os", "windows", "--arch", "amd64")
	require.NoError(t, err)
	assert.Contains(t, out, "(portable)")

	_, _, err = runCommand(t, "resolve", "DriverA", "--manifest", manifest, "--os", "darwin", "--arch", "arm64")
	assert.Error(t, err)

	_, _, err = runCommand(t, "resolve", "DriverA", "--manifest", manifest, "--os", "plan9", "--arch", "amd64")
	assert.Error(t, err)
}

func TestStageCommand(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("stage resolves for the host platform; the fixture only ships linux-x64")
	}
	manifest := writeTestManifest(t)
	packages := t.TempDir()
	native := filepath.Join(packages, "drivera", "runtimes", "linux-x64", "native", "liba.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(native), 0o755))
	require.NoError(t, os.WriteFile(native, []byte("native"), 0o644))

	out, _, err := runCommand(t, "stage", "DriverA", "--manifest", manifest, "--packages", packages, "--temp", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "copied  liba.so")
}

func TestAliasesCommand(t *testing.T) {
	out, _, err := runCommand(t, "aliases")
	require.NoError(t, err)
	assert.Contains(t, out, "postgresql")
	assert.Contains(t, out, "Npgsql/pgx")
	assert.Contains(t, out, "microsoftdatasqlclient")
}

// failingWriter rejects every write, like a closed pipe.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write /dev/stdout: broken pipe")
}

func TestCommandsReportWriteFailures(t *testing.T) {
	t.Run("aliases", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetOut(failingWriter{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"aliases"})
		assert.ErrorContains(t, cmd.Execute(), "broken pipe")
	})

	t.Run("stage result", func(t *testing.T) {
		result := &driverloader.StageResult{Copied: []string{"liba.so"}, Skipped: []string{"libhelper.so"}}
		assert.Error(t, printStageResult(failingWriter{}, "/tmp/wd", result))

		var buf bytes.Buffer
		require.NoError(t, printStageResult(&buf, "/tmp/wd", result))
		assert.Equal(t, "/tmp/wd\n  copied  liba.so\n  present libhelper.so\n", buf.String())
	})
}

func TestProbeCommandRequiresConfiguration(t *testing.T) {
	_, _, err := runCommand(t, "probe")
	assert.Error(t, err)

	_, _, err = runCommand(t, "probe", "--driver", "oracle", "--connection", "x", "--manifest", "m.json", "--packages", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestNewLoggerVerbosity(t *testing.T) {
	var buf bytes.Buffer
	quiet := newLogger(&buf, 0)
	quiet.Info("hidden")
	quiet.Warn("shown", "library", "DriverA")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "DriverA")

	buf.Reset()
	verbose := newLogger(&buf, 2).With("session", "abc")
	verbose.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "abc")
}
