package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	})
	assert.Error(t, err)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db, err := New(Config{Path: MemoryPath}, nil)
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
	}
	m := NewMigrator(db, nil)

	applied, err := m.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = m.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	versions, err := m.AppliedVersions()
	require.NoError(t, err)
	assert.True(t, versions[1])

	_, err = db.Exec("INSERT INTO widgets (name) VALUES ('x')")
	assert.NoError(t, err)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db, err := New(Config{Path: MemoryPath}, nil)
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db, nil)
	_, err = m.Run(fstest.MapFS{"001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); NOT SQL;")}})
	require.Error(t, err)

	versions, err := m.AppliedVersions()
	require.NoError(t, err)
	assert.False(t, versions[1])
}
