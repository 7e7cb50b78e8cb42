package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/krshsl/rentdesk/repository"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestServeRequiresJWTSecret(t *testing.T) {
	viper.Reset()
	t.Setenv("JWT_SECRET", "")

	rootCmd.SetArgs([]string{"serve"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestSeedCommand(t *testing.T) {
	viper.Reset()
	dbPath := filepath.Join(t.TempDir(), "rentdesk.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("AUTH_ADMIN_EMAIL", "ops@rentdesk.test")
	t.Setenv("AUTH_ADMIN_PASSWORD", "password123")

	rootCmd.SetArgs([]string{"seed"})
	require.NoError(t, rootCmd.Execute())

	db, err := repository.Open(repository.Options{Driver: repository.DriverSQLite, URL: dbPath})
	require.NoError(t, err)
	defer repository.Close(db)

	admin, err := repository.NewGORMRepository(db).GetUserByEmail(context.Background(), "ops@rentdesk.test")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "admin", admin.Role)
}
