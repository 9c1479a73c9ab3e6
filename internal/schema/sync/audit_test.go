package sync

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semitexa/semitexa/internal/schema"
)

func TestWriteAudit_WritesJSONAndSQLSiblingFiles(t *testing.T) {
	root := t.TempDir()
	executed := []schema.DdlOperation{
		{SQL: "CREATE TABLE `users` (...)", Kind: schema.KindCreateTable, Table: "users", Description: "create table users"},
		{SQL: "ALTER TABLE `users` ADD COLUMN `age` int", Kind: schema.KindAddColumn, Table: "users", Description: "add column users.age"},
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	jsonPath, sqlPath, err := WriteAudit(root, executed, at)
	require.NoError(t, err)

	jsonData, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var payload auditFile
	require.NoError(t, json.Unmarshal(jsonData, &payload))
	assert.Equal(t, 2, payload.OperationsCount)
	assert.Equal(t, "users", payload.Operations[0].Table)

	sqlData, err := os.ReadFile(sqlPath)
	require.NoError(t, err)
	assert.Contains(t, string(sqlData), "CREATE TABLE `users`")
	assert.Contains(t, string(sqlData), ";\n")
}

func TestWriteAudit_CreatesMissingDirectories(t *testing.T) {
	root := t.TempDir()
	_, _, err := WriteAudit(root, nil, time.Now().UTC())
	require.NoError(t, err)

	info, err := os.Stat(root + "/var/migrations/history")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
