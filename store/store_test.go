package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	db, err := Open(context.Background(), Memory)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db,
		`create table if not exists things (name text primary key)`,
		`create table if not exists things (name text primary key)`,
	))

	_, err = db.Exec(`insert into things (name) values (?)`, "a")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, `select count(*) from things`))
	assert.Equal(t, 1, count)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, `create table things (name text)`))
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.Get(&name, `select name from sqlite_master where type = 'table'`)
	require.NoError(t, err)
	assert.Equal(t, "things", name)
}

func TestMigrateFailure(t *testing.T) {
	db, err := Open(context.Background(), Memory)
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, Migrate(context.Background(), db, `not sql`))
}
