package ioutils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicWriteToFile(t *testing.T) {
	tmpDir := t.TempDir()
	expected := []byte("ifindex ifname\n2       eth0\n")
	err := AtomicWriteFile(filepath.Join(tmpDir, "table"), expected, 0o644)
	require.NoErrorf(t, err, "Error writing to file: %v", err)

	actual, err := os.ReadFile(filepath.Join(tmpDir, "table"))
	require.NoErrorf(t, err, "Error reading from file: %v", err)

	require.Truef(t, bytes.Equal(actual, expected), "Data mismatch, expected %q, got %q", expected, actual)

	fi, err := os.Stat(filepath.Join(tmpDir, "table"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), fi.Mode().Perm())
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 3; i++ {
		require.NoError(t, AtomicWriteFile(filepath.Join(tmpDir, "table"), []byte("ifindex ifname\n"), 0o644))
	}
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "table", entries[0].Name())
}
