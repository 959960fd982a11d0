package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations_Sorted(t *testing.T) {
	files := fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 2;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("ignored")},
		"010_c.sql": {Data: []byte("SELECT 10;")},
		"nested/x":  {Data: []byte("ignored")},
	}

	got, err := ListMigrations(files)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "001", got[0].Version)
	assert.Equal(t, "002_b.sql", got[1].Name)
	assert.Equal(t, "010", got[2].Version)
}

func TestListMigrations_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := ListMigrations(files)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(Files())
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001", got[0].Version)

	versions := make(map[string]bool)
	for _, m := range got {
		versions[m.Version] = true
	}
	assert.Len(t, versions, len(got))
}
