// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package paths resolves files inside the application's resource tree.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveFilePath resolves a relative path inside root while protecting
// against path traversal and symlink escapes. If allowMissing is true the
// file does not need to exist, but its parent directory must be safe.
func ResolveFilePath(root, relPath string, allowMissing bool) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: must be relative: %s", ErrUnsafePath, relPath)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: contains traversal: %s", ErrUnsafePath, relPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root directory: %w", err)
	}

	full := filepath.Join(absRoot, clean)

	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		// root may not exist yet; compare against the lexical path
		resolvedRoot = absRoot
	}

	resolved := full
	info, statErr := os.Stat(full)
	if statErr == nil {
		if info.IsDir() {
			return "", fmt.Errorf("path points to directory: %s", relPath)
		}
		if resolvedPath, evalErr := filepath.EvalSymlinks(full); evalErr == nil {
			resolved = resolvedPath
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return "", fmt.Errorf("stat file: %w", statErr)
	} else {
		if !allowMissing {
			return "", fmt.Errorf("file not found: %s: %w", relPath, os.ErrNotExist)
		}
		dir := filepath.Dir(full)
		if realDir, evalErr := filepath.EvalSymlinks(dir); evalErr == nil {
			resolved = filepath.Join(realDir, filepath.Base(full))
		}
	}

	relToRoot, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil {
		return "", fmt.Errorf("resolve relative path: %w", err)
	}
	// symlinks may point outside root
	if relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) || filepath.IsAbs(relToRoot) {
		return "", fmt.Errorf("%w: escapes root: %s", ErrUnsafePath, relPath)
	}

	return resolved, nil
}
