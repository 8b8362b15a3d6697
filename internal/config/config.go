package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceREST     = "rest"
	SourcePostgres = "postgres"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit   string   `mapstructure:"BODY_LIMIT"`
	TLSEnabled  bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string   `mapstructure:"TLS_KEY_FILE"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	RateLimitPerMinute float64 `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RateLimitBurst     int     `mapstructure:"RATE_LIMIT_BURST"`

	RowsSource     string        `mapstructure:"ROWS_SOURCE"`
	BackendURL     string        `mapstructure:"BACKEND_URL"`
	BackendToken   string        `mapstructure:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`

	ExportPolicyFile string `mapstructure:"EXPORT_POLICY_FILE"`
	ExportTimezone   string `mapstructure:"EXPORT_TIMEZONE"`
	ExportDir        string `mapstructure:"EXPORT_DIR"`
	// ExportPDFFonts are extra TrueType files PDF exports fall back to, for
	// scripts such as Sinhala and Tamil.
	ExportPDFFonts []string `mapstructure:"EXPORT_PDF_FONTS"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"BODY_LIMIT", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST",
	"ROWS_SOURCE", "BACKEND_URL", "BACKEND_TOKEN", "BACKEND_TIMEOUT",
	"EXPORT_POLICY_FILE", "EXPORT_TIMEZONE", "EXPORT_DIR", "EXPORT_PDF_FONTS",
}

// Load reads the environment, falling back to a .env file in the working
// directory. It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("ROWS_SOURCE", SourceREST)
	v.SetDefault("BACKEND_URL", "http://localhost:5000/api")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("EXPORT_TIMEZONE", "Asia/Colombo")
	v.SetDefault("EXPORT_DIR", ".")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.ExportPDFFonts = splitList(v.GetString("EXPORT_PDF_FONTS"))
	cfg.RowsSource = strings.ToLower(strings.TrimSpace(cfg.RowsSource))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location loads EXPORT_TIMEZONE, the zone export dates are shown in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ExportTimezone)
	if err != nil {
		return nil, fmt.Errorf("EXPORT_TIMEZONE %q: %w", c.ExportTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.RowsSource {
	case SourceREST:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required when ROWS_SOURCE is %q", SourceREST)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when ROWS_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("ROWS_SOURCE must be %q or %q, got %q", SourceREST, SourcePostgres, c.RowsSource)
	}

	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_ISSUER must be set when ENV=%q; "+
			"refusing to start without authentication", c.Env)
	}
	if c.AuthSigningKey == "" && c.AuthIssuer != "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ISSUER is set without AUTH_SIGNING_KEY")
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}
