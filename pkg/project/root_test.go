package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))
	compose := filepath.Join(root, "a", "docker-compose.yml")
	require.NoError(t, os.WriteFile(compose, []byte("services: {}\n"), 0644))

	found, err := FindUp(nested, "docker-compose.yml")
	require.NoError(t, err)
	assert.Equal(t, compose, found)

	_, err = FindUp(nested, "missing-compose.yml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindUp_SkipsDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "vm.yml"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vm.yml"), nil, 0644))

	found, err := FindUp(filepath.Join(root, "sub"), "vm.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vm.yml"), found)
}

func TestResolveFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "x")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docker-compose.yml"), nil, 0644))

	assert.Equal(t, "/etc/vm.yml", ResolveFile(nested, "/etc/vm.yml"))
	assert.Equal(t, filepath.Join(root, "docker-compose.yml"), ResolveFile(nested, "docker-compose.yml"))
	assert.Equal(t, filepath.Join(nested, "nope.yml"), ResolveFile(nested, "nope.yml"))
}
