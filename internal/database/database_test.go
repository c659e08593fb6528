package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/database/migrations"
)

func TestDSN(t *testing.T) {
	dsn := DSN("mess", "s3cret", "db.local", "3306", "messconnect")
	assert.Contains(t, dsn, "mess:s3cret@tcp(db.local:3306)/messconnect")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestDSN_NoPassword(t *testing.T) {
	dsn := DSN("root", "", "localhost", "3306", "mess")
	assert.Contains(t, dsn, "root@tcp(localhost:3306)/mess")
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrations.FS, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "kv_entries")
	assert.Contains(t, string(body), "kv_index")
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	boom := errors.New("boom")
	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return boom
	}

	err := Migrate(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ".", gotDir)
}
