package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/database"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestCipher(t *testing.T) *utils.TokenCipher {
	t.Helper()
	c, err := utils.NewTokenCipher("repository-test-key")
	require.NoError(t, err)
	return c
}
