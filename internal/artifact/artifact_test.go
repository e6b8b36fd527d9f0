package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishValue(t *testing.T, dest, value string) {
	t.Helper()
	tmp, err := os.MkdirTemp(filepath.Dir(dest), ".gen-*")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a"), []byte(value), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "b"), []byte(value), 0o644))
	require.NoError(t, Swap(tmp, dest))
}

func readPair(dir string) ([2]string, error) {
	var out [2]string
	for i, name := range []string{"a", "b"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func TestSwap_ReplacesAndCleansBackup(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "idx")
	publishValue(t, dest, "one")
	publishValue(t, dest, "two")

	got, err := readPair(dest)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"two", "two"}, got)
	assert.NoDirExists(t, dest+".bak")
}

func TestRead_RetriesWhenSwappedMidRead(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "idx")
	publishValue(t, dest, "old")

	calls := 0
	got, err := Read(dest, func(dir string) ([2]string, error) {
		calls++
		first, err := os.ReadFile(filepath.Join(dir, "a"))
		if err != nil {
			return [2]string{}, err
		}
		if calls == 1 {
			publishValue(t, dest, "new")
		}
		second, err := os.ReadFile(filepath.Join(dir, "b"))
		return [2]string{string(first), string(second)}, err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, [2]string{"new", "new"}, got)
}

func TestRead_GivesUpWhenNeverStable(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "idx")
	publishValue(t, dest, "v")

	calls := 0
	_, err := Read(dest, func(dir string) ([2]string, error) {
		calls++
		publishValue(t, dest, "v")
		return readPair(dir)
	})
	assert.ErrorIs(t, err, ErrUnstable)
	assert.Equal(t, readAttempts, calls)
}

func TestRead_MissingDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "idx")
	_, err := Read(dest, readPair)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRetire(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "idx")
	publishValue(t, dest, "v")
	require.NoError(t, Retire(dest))
	assert.NoDirExists(t, dest)
	assert.NoDirExists(t, dest+".bak")
	require.NoError(t, Retire(dest), "retiring a missing directory is a no-op")
}
