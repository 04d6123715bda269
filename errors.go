// errors.go: structured error definitions for the driver loader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// Error codes for the driver loader
const (
	// Manifest errors (1000-1099)
	ErrCodeManifestLoad    = "DRIVER_1001"
	ErrCodeLibraryNotFound = "DRIVER_1002"

	// Platform and asset resolution errors (1100-1199)
	ErrCodeUnsupportedPlatform = "DRIVER_1101"
	ErrCodeAssetResolution     = "DRIVER_1102"

	// Staging errors (1200-1299)
	ErrCodeNativeDependencyMissing  = "DRIVER_1201"
	ErrCodeWorkingDirectoryCreation = "DRIVER_1202"
	ErrCodeAssetIntegrity           = "DRIVER_1203"

	// Type loading errors (1300-1399)
	ErrCodeDriverTypeNotFound = "DRIVER_1301"
	ErrCodeModuleLoad         = "DRIVER_1302"

	// Connection errors (1400-1499)
	ErrCodeDriverInstantiation = "DRIVER_1401"

	// Alias errors (1500-1599)
	ErrCodeUnknownDriverAlias = "CONFIG_1501"

	// Configuration management errors (1700-1799)
	ErrCodeConfigNotFound        = "CONFIG_1701"
	ErrCodeConfigParseError      = "CONFIG_1702"
	ErrCodeConfigValidationError = "CONFIG_1703"

	// Audit errors (1800-1899)
	ErrCodeAuditError = "AUDIT_1801"
)

// AssetResolutionReason tells which step of runtime asset selection failed.
type AssetResolutionReason string

const (
	ReasonNoRuntimeTargets          AssetResolutionReason = "no_runtime_targets"
	ReasonNoTargetForOS             AssetResolutionReason = "no_target_for_os"
	ReasonNoTargetForOSArchitecture AssetResolutionReason = "no_target_for_os_architecture"
	ReasonAmbiguous                 AssetResolutionReason = "ambiguous"
)

// Manifest error constructors

func NewManifestLoadError(path, reason string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeManifestLoad, fmt.Sprintf("Failed to load dependency manifest %s: %s", path, reason)).
		WithUserMessage("The driver dependency manifest could not be loaded").
		WithContext("manifest_path", path).
		WithContext("reason", reason).
		WithSeverity("error")
}

func NewLibraryNotFoundError(name, manifestPath string, matches int) *errors.Error {
	msg := fmt.Sprintf("Failed to load assembly %s from deps file at %s", name, manifestPath)
	if matches > 1 {
		msg = fmt.Sprintf("%s: %d libraries share this name", msg, matches)
	}
	return errors.New(ErrCodeLibraryNotFound, msg).
		WithUserMessage("The requested library does not appear exactly once in the dependency manifest").
		WithContext("library", name).
		WithContext("manifest_path", manifestPath).
		WithContext("matches", matches).
		WithSeverity("error")
}

// Platform error constructors

func NewUnsupportedPlatformError(goos, goarch string) *errors.Error {
	return errors.New(ErrCodeUnsupportedPlatform, fmt.Sprintf("Unsupported operating system %s/%s", goos, goarch)).
		WithUserMessage("Only Windows, Linux and macOS hosts can load drivers").
		WithContext("os", goos).
		WithContext("arch", goarch).
		WithSeverity("error")
}

func NewAssetResolutionError(library string, kind AssetKind, platform Platform, reason AssetResolutionReason) *errors.Error {
	var msg string
	switch reason {
	case ReasonNoRuntimeTargets:
		msg = fmt.Sprintf("No runtime targets found for %s assets of %s", kind, library)
	case ReasonNoTargetForOS:
		msg = fmt.Sprintf("None of the runtime targets of %s matches the corresponding os: %s", library, platform.OS)
	case ReasonNoTargetForOSArchitecture:
		msg = fmt.Sprintf("None of the runtime targets of %s matches the corresponding os: %s and os architecture: %s",
			library, platform.OS, platform.Arch)
	default:
		msg = fmt.Sprintf("Can not define the correct %s asset of %s for your system", kind, library)
	}
	return errors.New(ErrCodeAssetResolution, msg).
		WithUserMessage("No single driver build matches this platform").
		WithContext("library", library).
		WithContext("asset_kind", string(kind)).
		WithContext("platform", platform.String()).
		WithContext("reason", string(reason)).
		WithSeverity("error")
}

// Staging error constructors

func NewNativeDependencyMissingError(library string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeNativeDependencyMissing, "Failed to stage native dependencies of "+library).
		WithUserMessage("A native library required by the driver could not be staged").
		WithContext("library", library).
		WithSeverity("error")
}

func NewWorkingDirectoryCreationError(path string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeWorkingDirectoryCreation, fmt.Sprintf("Failed to create the driver temp working folder at %s", path)).
		WithUserMessage("The driver staging directory could not be created").
		WithContext("path", path).
		WithSeverity("error")
}

func NewAssetIntegrityError(path, expected, actual string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeAssetIntegrity, "Asset checksum mismatch for "+path).
		WithUserMessage("A driver asset does not match its recorded checksum").
		WithContext("path", path).
		WithContext("expected", expected).
		WithContext("actual", actual).
		WithSeverity("critical")
}

// Type loading error constructors

func NewDriverTypeNotFoundError(typeName, library, modulePath string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeDriverTypeNotFound, fmt.Sprintf("Driver type %s not found in %s", typeName, library)).
		WithUserMessage("The driver module does not export the requested connection type").
		WithContext("type_name", typeName).
		WithContext("library", library).
		WithContext("module_path", modulePath).
		WithSeverity("error")
}

func NewModuleLoadError(library, modulePath string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeModuleLoad, fmt.Sprintf("Failed to load module %s from %s", library, modulePath)).
		WithUserMessage("The driver module could not be loaded into the process").
		WithContext("library", library).
		WithContext("module_path", modulePath).
		WithSeverity("error")
}

// Connection error constructors

func NewDriverInstantiationError(driverName, reason string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeDriverInstantiation, fmt.Sprintf("Failed to create a connection for driver %s: %s", driverName, reason)).
		WithUserMessage("The database driver could not create a connection").
		WithContext("driver", driverName).
		WithContext("reason", reason).
		WithSeverity("error")
}

// Alias error constructors

func NewUnknownDriverAliasError(name string, known []string) *errors.Error {
	return errors.New(ErrCodeUnknownDriverAlias, fmt.Sprintf("Driver name %q is unknown. Try one of: %s", name, strings.Join(known, ", "))).
		WithUserMessage("The configured database driver name is not recognised").
		WithContext("driver", name).
		WithContext("known_aliases", known).
		WithSeverity("error")
}

// Configuration error constructors

func NewConfigNotFoundError(path string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("The specified configuration file could not be found").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeConfigParseError, "Configuration parse error").
		WithUserMessage("Failed to parse the configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeConfigValidationError, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithContext("validation_message", message).
		WithSeverity("error")
}

// Audit error constructors

func NewAuditError(message string, cause error) *errors.Error {
	return wrapOrNew(cause, ErrCodeAuditError, "Audit error: "+message).
		WithUserMessage("Security audit logging failed").
		WithContext("audit_message", message).
		WithSeverity("warning")
}

// wrapOrNew keeps constructors usable with and without an underlying cause.
func wrapOrNew(cause error, code errors.ErrorCode, message string) *errors.Error {
	if cause == nil {
		return errors.New(code, message)
	}
	return errors.Wrap(cause, code, message)
}

// ErrorCodeOf returns the structured error code carried by err, if any.
func ErrorCodeOf(err error) (string, bool) {
	var goErr *errors.Error
	if !stderrors.As(err, &goErr) {
		return "", false
	}
	return string(goErr.ErrorCode()), true
}

// HasErrorCode reports whether err, or any error it wraps, carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var goErr *errors.Error
		if !stderrors.As(err, &goErr) {
			return false
		}
		if string(goErr.ErrorCode()) == code {
			return true
		}
		err = goErr.Cause
	}
	return false
}

// AssetResolutionReasonOf extracts the failing selection step from an
// asset resolution error anywhere in the chain.
func AssetResolutionReasonOf(err error) (AssetResolutionReason, bool) {
	for err != nil {
		var goErr *errors.Error
		if !stderrors.As(err, &goErr) {
			return "", false
		}
		if string(goErr.ErrorCode()) == ErrCodeAssetResolution {
			reason, ok := goErr.Context["reason"].(string)
			return AssetResolutionReason(reason), ok
		}
		err = goErr.Cause
	}
	return "", false
}
