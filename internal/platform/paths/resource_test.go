// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAsset(t *testing.T) {
	res := t.TempDir()
	assets := filepath.Join(res, AssetsDirName, "videos")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "intro.mp4"), []byte("x"), 0o600))

	resolvedRes, err := filepath.EvalSymlinks(res)
	require.NoError(t, err)

	got, err := ResolveAsset(res, "videos/intro.mp4")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(resolvedRes, AssetsDirName, "videos", "intro.mp4"), got)

	// missing assets are resolved too
	got, err = ResolveAsset(res, "videos/missing.mp4")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(resolvedRes, AssetsDirName, "videos", "missing.mp4"), got)
}

func TestResolveAssetNormalizesNFC(t *testing.T) {
	res := t.TempDir()
	dir := filepath.Join(res, AssetsDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// "é" decomposed (e + U+0301) resolves to the composed form
	got, err := ResolveAsset(res, "cafe\u0301.mp4")
	require.NoError(t, err)
	require.Equal(t, "caf\u00e9.mp4", filepath.Base(got))
}

func TestResolveAssetRejects(t *testing.T) {
	_, err := ResolveAsset("", "a.mp4")
	require.ErrorIs(t, err, ErrNoResourceDir)

	res := t.TempDir()
	for _, bad := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		_, err := ResolveAsset(res, bad)
		require.ErrorIs(t, err, ErrUnsafePath, bad)
	}
}

func TestResolveFilePathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0o600))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret"), filepath.Join(root, "link")))

	_, err := ResolveFilePath(root, "link", false)
	require.ErrorIs(t, err, ErrUnsafePath)

	_, err = ResolveFilePath(root, "absent", false)
	require.ErrorIs(t, err, os.ErrNotExist)
}
