// env_config.go: environment variable expansion for loader configuration
//
// Configuration values may reference the environment with ${VAR} or
// ${VAR:-default}. Variables are looked up with the configured prefix
// first, so DRIVERLOADER_PACKAGES wins over PACKAGES.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvConfigOptions configures environment variable expansion.
type EnvConfigOptions struct {
	// Prefix for environment variables (e.g. "DRIVERLOADER_")
	Prefix string `json:"prefix" yaml:"prefix"`

	// Whether to fail when a referenced variable has no value or default
	FailOnMissing bool `json:"fail_on_missing" yaml:"fail_on_missing"`

	// Whether to reject values with null bytes, control characters or
	// excessive length
	ValidateValues bool `json:"validate_values" yaml:"validate_values"`

	// Default values for undefined environment variables
	Defaults map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// DefaultEnvConfigOptions returns the options used by LoadLoaderConfig.
func DefaultEnvConfigOptions() EnvConfigOptions {
	return EnvConfigOptions{
		Prefix:         "DRIVERLOADER_",
		FailOnMissing:  false,
		ValidateValues: true,
		Defaults:       make(map[string]string),
	}
}

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// maxEnvValueLength bounds expanded values.
const maxEnvValueLength = 4096

// ExpandEnvironmentVariables expands ${VAR} and ${VAR:-default}
// placeholders in input.
//
// Resolution order for each variable:
//  1. prefixed environment variable
//  2. unprefixed environment variable
//  3. inline default
//  4. options.Defaults
//  5. empty string, or an error when FailOnMissing is set
func ExpandEnvironmentVariables(input string, options EnvConfigOptions) (string, error) {
	if input == "" || !strings.Contains(input, "${") {
		return input, nil
	}

	var firstErr error
	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		submatches := variablePattern.FindStringSubmatch(match)
		inlineDefault := ""
		if len(submatches) >= 4 {
			inlineDefault = submatches[3]
		}
		expanded, err := expandSingleEnvironmentVariable(submatches[1], inlineDefault, options)
		if err != nil {
			firstErr = err
			return match
		}
		return expanded
	})
	if firstErr != nil {
		return input, firstErr
	}
	return result, nil
}

func expandSingleEnvironmentVariable(varName, inlineDefault string, options EnvConfigOptions) (string, error) {
	prefixedName := options.Prefix + varName
	if value := os.Getenv(prefixedName); value != "" {
		return validateAndSanitizeValue(value, options)
	}
	if value := os.Getenv(varName); value != "" {
		return validateAndSanitizeValue(value, options)
	}
	if inlineDefault != "" {
		return validateAndSanitizeValue(inlineDefault, options)
	}
	if value, exists := options.Defaults[varName]; exists {
		return validateAndSanitizeValue(value, options)
	}

	if options.FailOnMissing {
		return "", NewConfigValidationError(fmt.Sprintf("required environment variable not found: %s (also tried %s)", varName, prefixedName), nil)
	}
	return "", nil
}

func validateAndSanitizeValue(value string, options EnvConfigOptions) (string, error) {
	if !options.ValidateValues {
		return value, nil
	}
	if strings.Contains(value, "\x00") {
		return "", NewConfigValidationError("environment variable value contains null byte", nil)
	}
	if len(value) > maxEnvValueLength {
		return "", NewConfigValidationError(fmt.Sprintf("environment variable value too long: %d bytes (max %d)", len(value), maxEnvValueLength), nil)
	}
	for i, r := range value {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return "", NewConfigValidationError(fmt.Sprintf("environment variable contains control character at position %d", i), nil)
		}
	}
	return value, nil
}

// expandConfigWithEnv expands every string field of a LoaderConfig.
func expandConfigWithEnv(config *LoaderConfig, options EnvConfigOptions) error {
	fields := []struct {
		value *string
		name  string
	}{
		{&config.Driver, "driver"},
		{&config.ConnectionString, "connection string"},
		{&config.ManifestPath, "manifest"},
		{&config.PackageRoot, "package root"},
		{&config.TempRoot, "temp root"},
		{&config.AuditFile, "audit file"},
	}
	for _, f := range fields {
		expanded, err := ExpandEnvironmentVariables(*f.value, options)
		if err != nil {
			return NewConfigValidationError("failed to expand "+f.name, err)
		}
		*f.value = expanded
	}

	for i := range config.Aliases {
		def := &config.Aliases[i].Definition
		for _, field := range []*string{&def.Library, &def.TypeName, &def.VersionConstraint} {
			expanded, err := ExpandEnvironmentVariables(*field, options)
			if err != nil {
				return NewConfigValidationError(fmt.Sprintf("failed to expand alias %d", i), err)
			}
			*field = expanded
		}
	}
	return nil
}
