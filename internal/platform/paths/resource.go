// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AssetsDirName is the directory bundled application assets live in.
const AssetsDirName = "flutter_assets"

var (
	// ErrNoResourceDir means the application resource directory is unknown.
	ErrNoResourceDir = errors.New("resource directory not configured")
	// ErrUnsafePath rejects absolute or escaping relative paths.
	ErrUnsafePath = errors.New("unsafe path")
)

// ResolveAsset maps a bundled asset key to <resourceDir>/flutter_assets/<asset>.
// The asset does not need to exist; it only has to stay inside the assets
// tree. Asset keys are NFC-normalized so decomposed names from the managed
// layer match the files on disk.
func ResolveAsset(resourceDir, asset string) (string, error) {
	resourceDir = strings.TrimSpace(resourceDir)
	if resourceDir == "" {
		return "", ErrNoResourceDir
	}
	asset = norm.NFC.String(strings.TrimSpace(asset))
	if asset == "" {
		return "", fmt.Errorf("%w: empty asset", ErrUnsafePath)
	}
	// asset keys always use forward slashes
	rel := filepath.FromSlash(asset)
	return ResolveFilePath(filepath.Join(resourceDir, AssetsDirName), rel, true)
}
