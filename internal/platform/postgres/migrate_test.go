package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrderedAndEmbedded(t *testing.T) {
	t.Parallel()

	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "migrations/001_delivery_tiers.sql", names[0])

	body, err := migrationsFS.ReadFile(names[0])
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS delivery_tiers"))
}
