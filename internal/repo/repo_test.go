package repo

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")

	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"step_definitions", "tenders", "tender_step_history", "users"} {
		assert.True(t, strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "active", *nullString("active"))

	assert.Nil(t, nullInt(0))
	assert.Nil(t, nullInt(-1))
	assert.Equal(t, 5, *nullInt(5))

	assert.Nil(t, nullUUID(nil))
	zero := uuid.Nil
	assert.Nil(t, nullUUID(&zero))
	id := uuid.New()
	assert.Equal(t, &id, nullUUID(&id))
}

func TestMarshalMetadata(t *testing.T) {
	data, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = marshalMetadata(map[string]any{"lot": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lot": 3}`, string(data))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}
