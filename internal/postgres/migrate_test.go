package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "migrations/001_create_subscriptions.sql", first.Name)
	assert.Contains(t, first.SQL, "UNIQUE (user_id)")
	assert.Contains(t, first.SQL, "UNIQUE (provider_subscription_id)")
}
