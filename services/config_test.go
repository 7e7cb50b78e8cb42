package services

import (
	"context"
	"testing"

	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	cfg := LoadConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.Seed)
	assert.False(t, cfg.Auth.AllowSignup)
	assert.Equal(t, "@every 15m", cfg.Scheduler.OverdueSpec)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, 5, cfg.RateLimit.LoginBurst)
}

func TestLoadConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_SEED", "false")
	t.Setenv("AUTH_ALLOW_SIGNUP", "true")
	t.Setenv("PAGINATION_MAX_LIMIT", "50")
	t.Setenv("RATELIMIT_LOGIN_RPS", "2.5")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Database.Seed)
	assert.True(t, cfg.Auth.AllowSignup)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 2.5, cfg.RateLimit.LoginRPS)
}

func TestSeedDatabaseIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	seeder := NewDatabaseSeeder(repo, "Owner@RentDesk.test", "password123")
	ctx := context.Background()

	require.NoError(t, seeder.SeedDatabase(ctx))
	require.NoError(t, seeder.SeedDatabase(ctx))

	admin, err := repo.GetUserByEmail(ctx, "owner@rentdesk.test")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())

	makes, total, err := repo.ListLookups(ctx, models.MustLookupKind(models.KindVehicleMakes), repository.LookupFilter{ListParams: repository.ListParams{Page: 1, Limit: 50}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	var toyota string
	for _, m := range makes {
		if m.Name == "Toyota" {
			toyota = m.ID
		}
	}
	require.NotEmpty(t, toyota)
	_, modelCount, err := repo.ListLookups(ctx, models.MustLookupKind(models.KindVehicleModels), repository.LookupFilter{ListParams: repository.ListParams{Page: 1, Limit: 50}, ParentID: toyota})
	require.NoError(t, err)
	assert.EqualValues(t, 3, modelCount)

	_, optionCount, err := repo.ListInsuranceOptions(ctx, repository.ListParams{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 3, optionCount)
}
