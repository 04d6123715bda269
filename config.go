// config.go: loader configuration loading and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// LoaderConfig is the file based configuration of a driver session.
//
// Example YAML:
//
//	driver: postgresql
//	connection_string: ${DATABASE_URL}
//	manifest: /opt/migrate/drivers.deps.json
//	package_root: ${DRIVERLOADER_PACKAGES:-/opt/migrate/packages}
//	aliases:
//	  - names: [cockroach, cockroachdb]
//	    definition: {name: CockroachDB, library: Npgsql, type: pgx}
type LoaderConfig struct {
	Driver           string        `json:"driver" yaml:"driver"`
	ConnectionString string        `json:"connection_string" yaml:"connection_string"`
	ManifestPath     string        `json:"manifest" yaml:"manifest"`
	PackageRoot      string        `json:"package_root,omitempty" yaml:"package_root,omitempty"`
	TempRoot         string        `json:"temp_root,omitempty" yaml:"temp_root,omitempty"`
	AuditFile        string        `json:"audit_file,omitempty" yaml:"audit_file,omitempty"`
	CleanupOnClose   bool          `json:"cleanup_on_close,omitempty" yaml:"cleanup_on_close,omitempty"`
	Aliases          []DriverAlias `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// LoadLoaderConfig reads, expands, defaults and validates the configuration
// at path. JSON, YAML, TOML, HCL, INI and properties files are accepted.
func LoadLoaderConfig(path string) (LoaderConfig, error) {
	var config LoaderConfig

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - configuration path is operator supplied
	if err != nil {
		if os.IsNotExist(err) {
			return config, NewConfigNotFoundError(path, err)
		}
		return config, NewConfigParseError(path, err)
	}

	format := argus.DetectFormat(cleanPath)
	if err := parseConfigWithHybridStrategy(data, format, &config); err != nil {
		return config, NewConfigParseError(path, fmt.Errorf("failed to parse %s config: %w", format, err))
	}

	if err := expandConfigWithEnv(&config, DefaultEnvConfigOptions()); err != nil {
		return config, err
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// parseConfigWithHybridStrategy parses YAML with yaml.v3 and every other
// format with argus, binding the result through JSON.
func parseConfigWithHybridStrategy(data []byte, format argus.ConfigFormat, config *LoaderConfig) error {
	if format == argus.FormatYAML {
		return yaml.Unmarshal(data, config)
	}

	configMap, err := argus.ParseConfig(data, format)
	if err != nil {
		return err
	}
	return bindLoaderConfig(configMap, config)
}

func bindLoaderConfig(configMap map[string]interface{}, config *LoaderConfig) error {
	if configMap == nil {
		return fmt.Errorf("configuration map is nil")
	}
	jsonBytes, err := json.Marshal(configMap)
	if err != nil {
		return fmt.Errorf("failed to marshal config map to JSON: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// DefaultPackageRoot returns $DRIVERLOADER_PACKAGES, falling back to
// ~/.driverloader/packages.
func DefaultPackageRoot() string {
	if root := os.Getenv("DRIVERLOADER_PACKAGES"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "driverloader", "packages")
	}
	return filepath.Join(home, ".driverloader", "packages")
}

// ApplyDefaults fills unset optional fields.
func (c *LoaderConfig) ApplyDefaults() {
	if c.PackageRoot == "" {
		c.PackageRoot = DefaultPackageRoot()
	}
	if c.TempRoot == "" {
		c.TempRoot = os.TempDir()
	}
}

// Validate checks the configuration can start a session.
func (c LoaderConfig) Validate() error {
	if c.Driver == "" {
		return NewConfigValidationError("driver name is required", nil)
	}
	if c.ConnectionString == "" {
		return NewConfigValidationError("connection string is required", nil)
	}
	if c.ManifestPath == "" {
		return NewConfigValidationError("manifest path is required", nil)
	}
	if c.PackageRoot == "" {
		return NewConfigValidationError("package root is required", nil)
	}
	for i, a := range c.Aliases {
		if len(a.Names) == 0 {
			return NewConfigValidationError(fmt.Sprintf("alias %d has no names", i), nil)
		}
		if a.Definition.Library == "" || a.Definition.TypeName == "" {
			return NewConfigValidationError(fmt.Sprintf("alias %d needs both library and type", i), nil)
		}
	}
	return nil
}

// AliasTable returns the default aliases extended with configured ones.
func (c LoaderConfig) AliasTable() *DriverAliasTable {
	return DefaultDriverAliases().With(c.Aliases...)
}

// SessionOptions converts the configuration into session options. Logger
// and auditor are supplied by the caller.
func (c LoaderConfig) SessionOptions(logger Logger, auditor Auditor) SessionOptions {
	return SessionOptions{
		ManifestPath:   c.ManifestPath,
		PackageRoot:    c.PackageRoot,
		TempRoot:       c.TempRoot,
		Logger:         logger,
		Auditor:        auditor,
		CleanupOnClose: c.CleanupOnClose,
	}
}

// NewProvider builds a ConnectionProvider for the configured driver and
// connection string.
func (c LoaderConfig) NewProvider(logger Logger, auditor Auditor) (*ConnectionProvider, error) {
	return NewConnectionProvider(c.AliasTable(), c.Driver, c.ConnectionString, c.SessionOptions(logger, auditor))
}
