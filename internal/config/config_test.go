package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "4000", cfg.Server.Port)
	require.Equal(t, "mongodb", cfg.Storage.Driver)
	require.Equal(t, 10*time.Second, cfg.Commerce.Timeout)
	require.True(t, cfg.Commerce.MockAPI)
	require.Equal(t, 100, cfg.Loyalty.PointsPerCurrencyUnit)
	require.Equal(t, 1000, cfg.Loyalty.WelcomeBonusPoints)
	require.Equal(t, 500, cfg.Loyalty.MinRedemptionPoints)
	require.Equal(t, []TierConfig{
		{PointsCost: 500, Value: 5},
		{PointsCost: 1000, Value: 10},
		{PointsCost: 2000, Value: 20},
	}, cfg.Loyalty.RedemptionTiers)
	require.Equal(t, ImportConfig{ProgressEvery: 500}, cfg.Import)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("LOYALTY_WELCOMEBONUSPOINTS", "250")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("COMMERCE_MOCKAPI", "false")
	t.Setenv("IMPORT_FILE", "orders.csv")
	t.Setenv("IMPORT_STOPONERROR", "true")
	t.Setenv("IMPORT_PROGRESSEVERY", "50")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Loyalty.WelcomeBonusPoints)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "s3cret", cfg.JWT.Secret)
	require.False(t, cfg.Commerce.MockAPI)
	require.Equal(t, ImportConfig{File: "orders.csv", StopOnError: true, ProgressEvery: 50}, cfg.Import)
}

func validConfig() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite"},
		SQL:     SQLConfig{DSN: "file::memory:"},
		Loyalty: LoyaltyConfig{
			PointsPerCurrencyUnit: 100,
			AccrualRate:           0.10,
			WelcomeBonusPoints:    1000,
			MinRedemptionPoints:   500,
			RedemptionTiers:       []TierConfig{{PointsCost: 500, Value: 5}},
		},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero points per unit", func(c *Config) { c.Loyalty.PointsPerCurrencyUnit = 0 }, "pointsPerCurrencyUnit"},
		{"accrual rate above one", func(c *Config) { c.Loyalty.AccrualRate = 1.5 }, "accrualRate"},
		{"negative bonus", func(c *Config) { c.Loyalty.WelcomeBonusPoints = -1 }, "welcomeBonusPoints"},
		{"no tiers", func(c *Config) { c.Loyalty.RedemptionTiers = nil }, "must not be empty"},
		{"tier below minimum", func(c *Config) {
			c.Loyalty.RedemptionTiers = []TierConfig{{PointsCost: 100, Value: 1}}
		}, "below the 500 point minimum"},
		{"duplicate tier", func(c *Config) {
			c.Loyalty.RedemptionTiers = []TierConfig{{PointsCost: 500, Value: 5}, {PointsCost: 500, Value: 6}}
		}, "duplicate"},
		{"free tier", func(c *Config) {
			c.Loyalty.RedemptionTiers = []TierConfig{{PointsCost: 500}}
		}, "positive value"},
		{"negative progress interval", func(c *Config) { c.Import.ProgressEvery = -1 }, "import.progressEvery"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, "unsupported storage driver"},
		{"sqlite without dsn", func(c *Config) { c.SQL.DSN = "" }, "sql.dsn"},
		{"mongodb without uri", func(c *Config) { c.Storage.Driver = "mongodb" }, "mongodb.uri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
