package config

import (
	"strings"
	"time"

	"roms_backend/pkg/utils"
)

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SchemaPath string
}

// GatewayConfig holds the payment gateway credentials and wire settings.
type GatewayConfig struct {
	BaseURL             string
	APIKey              string
	WebhookSecret       string
	Currency            string
	StatementDescriptor string
}

// GeofenceConfig holds the proximity verification settings.
type GeofenceConfig struct {
	DefaultRadiusMeters int
	MaxRadiusMeters     int
	TokenTTL            time.Duration
}

// Config is the full environment-driven configuration surface of the server.
type Config struct {
	Port               string
	CORSAllowedOrigins []string

	Database DatabaseConfig
	Gateway  GatewayConfig
	Geofence GeofenceConfig

	PlatformFeePercentage float64

	JWTSecret     string
	JWTExpiration time.Duration
}

// Load reads the configuration from environment variables, applying defaults
// for everything that is safe to default.
func Load() *Config {
	cfg := &Config{
		Port: utils.Getenv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:       utils.Getenv("DB_HOST", "localhost"),
			Port:       utils.Getenv("DB_PORT", "5432"),
			User:       utils.Getenv("DB_USER", "roms_user"),
			Password:   utils.Getenv("DB_PASSWORD", "roms_password"),
			Name:       utils.Getenv("DB_NAME", "roms_db"),
			SSLMode:    utils.Getenv("DB_SSLMODE", "disable"),
			SchemaPath: utils.Getenv("DB_SCHEMA_PATH", ""),
		},
		Gateway: GatewayConfig{
			BaseURL:             utils.Getenv("GATEWAY_BASE_URL", "https://api.gateway.example.com"),
			APIKey:              utils.Getenv("GATEWAY_API_KEY", ""),
			WebhookSecret:       utils.Getenv("GATEWAY_WEBHOOK_SECRET", ""),
			Currency:            utils.Getenv("GATEWAY_CURRENCY", "usd"),
			StatementDescriptor: utils.Getenv("GATEWAY_STATEMENT_DESCRIPTOR", "ROMS ORDER"),
		},
		Geofence: GeofenceConfig{
			DefaultRadiusMeters: utils.GetenvInt("GEOFENCE_DEFAULT_RADIUS_METERS", 100),
			MaxRadiusMeters:     utils.GetenvInt("GEOFENCE_MAX_RADIUS_METERS", 500),
			TokenTTL:            time.Duration(utils.GetenvInt("GEOFENCE_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		},
		PlatformFeePercentage: utils.GetenvFloat("PLATFORM_FEE_PERCENTAGE", 3),
		JWTSecret:             utils.Getenv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration:         time.Duration(utils.GetenvInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
	}

	if origins := utils.Getenv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSAllowedOrigins = strings.Split(origins, ",")
	} else {
		cfg.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}

	return cfg
}
