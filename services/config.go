package services

import (
	"log/slog"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Auth        AuthConfig
	WebSocket   WebSocketConfig
	RateLimit   RateLimitConfig
	Scheduler   SchedulerConfig
	Pagination  PaginationConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver       string
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type JWTConfig struct {
	Secret string
}

type AuthConfig struct {
	AllowSignup   bool
	AdminEmail    string
	AdminPassword string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type RateLimitConfig struct {
	LoginRPS   float64
	LoginBurst int
}

type SchedulerConfig struct {
	OverdueSpec string
}

type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// IsProduction reports whether cookies must be marked secure
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("auth.allow_signup", "false")
	viper.SetDefault("auth.admin_email", "admin@rentdesk.local")
	viper.SetDefault("auth.admin_password", "")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("ratelimit.login_rps", "1")
	viper.SetDefault("ratelimit.login_burst", "5")
	viper.SetDefault("scheduler.overdue_spec", "@every 15m")
	viper.SetDefault("pagination.default_limit", "10")
	viper.SetDefault("pagination.max_limit", "100")

	// Map environment variables to config keys
	viper.BindEnv("environment", "ENVIRONMENT")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("auth.allow_signup", "AUTH_ALLOW_SIGNUP")
	viper.BindEnv("auth.admin_email", "AUTH_ADMIN_EMAIL")
	viper.BindEnv("auth.admin_password", "AUTH_ADMIN_PASSWORD")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("ratelimit.login_rps", "RATELIMIT_LOGIN_RPS")
	viper.BindEnv("ratelimit.login_burst", "RATELIMIT_LOGIN_BURST")
	viper.BindEnv("scheduler.overdue_spec", "SCHEDULER_OVERDUE_SPEC")
	viper.BindEnv("pagination.default_limit", "PAGINATION_DEFAULT_LIMIT")
	viper.BindEnv("pagination.max_limit", "PAGINATION_MAX_LIMIT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Environment: viper.GetString("environment"),
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Driver:       viper.GetString("database.driver"),
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Auth: AuthConfig{
			AllowSignup:   viper.GetBool("auth.allow_signup"),
			AdminEmail:    viper.GetString("auth.admin_email"),
			AdminPassword: viper.GetString("auth.admin_password"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   viper.GetFloat64("ratelimit.login_rps"),
			LoginBurst: viper.GetInt("ratelimit.login_burst"),
		},
		Scheduler: SchedulerConfig{
			OverdueSpec: viper.GetString("scheduler.overdue_spec"),
		},
		Pagination: PaginationConfig{
			DefaultLimit: viper.GetInt("pagination.default_limit"),
			MaxLimit:     viper.GetInt("pagination.max_limit"),
		},
	}
}
