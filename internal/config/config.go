package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	SQL       SQLConfig
	JWT       JWTConfig
	Webhook   KeyConfig
	Admin     KeyConfig
	Commerce  CommerceConfig
	Loyalty   LoyaltyConfig
	Import    ImportConfig
	LogLevel  string
	LogFormat string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Mode         string
	AllowedHosts []string
}

// StorageConfig selects the persistence backend: mongodb, postgres or sqlite
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	Transactions   bool
	ConnectTimeout time.Duration
}

// SQLConfig holds the DSN used by the postgres and sqlite drivers
type SQLConfig struct {
	DSN string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret string
	Issuer string
}

// KeyConfig holds the bcrypt hash of a shared API key
type KeyConfig struct {
	KeyHash string
}

// CommerceConfig holds commerce platform API configuration
type CommerceConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	MockAPI      bool
	Timeout      time.Duration
}

// TierConfig is one redemption tier as written in configuration
type TierConfig struct {
	PointsCost int
	Value      float64
}

// LoyaltyConfig holds the points program constants
type LoyaltyConfig struct {
	PointsPerCurrencyUnit int
	AccrualRate           float64
	WelcomeBonusPoints    int
	MinRedemptionPoints   int
	RedemptionTiers       []TierConfig
}

// ImportConfig drives cmd/import. File may be overridden by the first
// command line argument.
type ImportConfig struct {
	File          string
	StopOnError   bool
	ProgressEvery int
}

// Load reads a .env file if present, then configuration from config.yaml
// (in . or ./config) and environment variables, e.g. LOYALTY_WELCOMEBONUSPOINTS.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("Storage.Driver", "mongodb")
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "sushi-loyalty")
	v.SetDefault("MongoDB.Transactions", true)
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("SQL.DSN", "loyalty.db")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.Issuer", "sushi-storefront")
	v.SetDefault("Webhook.KeyHash", "")
	v.SetDefault("Admin.KeyHash", "")
	v.SetDefault("Commerce.BaseURL", "")
	v.SetDefault("Commerce.ClientID", "")
	v.SetDefault("Commerce.ClientSecret", "")
	v.SetDefault("Commerce.Currency", "EUR")
	v.SetDefault("Commerce.MockAPI", true)
	v.SetDefault("Commerce.Timeout", 10*time.Second)
	v.SetDefault("Loyalty.PointsPerCurrencyUnit", 100)
	v.SetDefault("Loyalty.AccrualRate", 0.10)
	v.SetDefault("Loyalty.WelcomeBonusPoints", 1000)
	v.SetDefault("Loyalty.MinRedemptionPoints", 500)
	v.SetDefault("Loyalty.RedemptionTiers", []map[string]interface{}{
		{"pointscost": 500, "value": 5},
		{"pointscost": 1000, "value": 10},
		{"pointscost": 2000, "value": 20},
	})
	v.SetDefault("Import.File", "")
	v.SetDefault("Import.StopOnError", false)
	v.SetDefault("Import.ProgressEvery", 500)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	l := c.Loyalty
	if l.PointsPerCurrencyUnit <= 0 {
		return fmt.Errorf("loyalty.pointsPerCurrencyUnit must be positive, got %d", l.PointsPerCurrencyUnit)
	}
	if l.AccrualRate <= 0 || l.AccrualRate > 1 {
		return fmt.Errorf("loyalty.accrualRate must be in (0, 1], got %v", l.AccrualRate)
	}
	if l.WelcomeBonusPoints < 0 {
		return fmt.Errorf("loyalty.welcomeBonusPoints must not be negative, got %d", l.WelcomeBonusPoints)
	}
	if l.MinRedemptionPoints <= 0 {
		return fmt.Errorf("loyalty.minRedemptionPoints must be positive, got %d", l.MinRedemptionPoints)
	}
	if len(l.RedemptionTiers) == 0 {
		return errors.New("loyalty.redemptionTiers must not be empty")
	}
	seen := make(map[int]bool, len(l.RedemptionTiers))
	for _, t := range l.RedemptionTiers {
		if t.PointsCost < l.MinRedemptionPoints {
			return fmt.Errorf("redemption tier of %d points is below the %d point minimum", t.PointsCost, l.MinRedemptionPoints)
		}
		if t.Value <= 0 {
			return fmt.Errorf("redemption tier of %d points must have a positive value", t.PointsCost)
		}
		if seen[t.PointsCost] {
			return fmt.Errorf("duplicate redemption tier of %d points", t.PointsCost)
		}
		seen[t.PointsCost] = true
	}

	if c.Import.ProgressEvery < 0 {
		return fmt.Errorf("import.progressEvery must not be negative, got %d", c.Import.ProgressEvery)
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "mongodb":
		if c.MongoDB.URI == "" || c.MongoDB.Database == "" {
			return errors.New("mongodb.uri and mongodb.database are required")
		}
	case "postgres", "sqlite":
		if c.SQL.DSN == "" {
			return errors.New("sql.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}
