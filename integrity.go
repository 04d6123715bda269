// integrity.go: optional checksum verification of resolved assets
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// fileSHA256 returns the hex SHA-256 digest of the file at path.
func fileSHA256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path)) // #nosec G304 - asset path is built from the package root
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// verifyAsset checks the file at absPath against the checksum the group
// declares for assetPath. Groups without a checksum for the asset pass.
func verifyAsset(group AssetGroup, assetPath, absPath string) error {
	expected, ok := group.Checksums[assetPath]
	if !ok || expected == "" {
		return nil
	}

	actual, err := fileSHA256(absPath)
	if err != nil {
		return NewAssetIntegrityError(absPath, expected, "", err)
	}
	if !strings.EqualFold(actual, expected) {
		return NewAssetIntegrityError(absPath, expected, actual, nil)
	}
	return nil
}
