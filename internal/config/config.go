package config

import (
	"os"
	"strings"
	"time"

	"compliance-backend/internal/apperr"
)

// Config holds everything the service reads from the environment. Secrets have
// no fallback: a missing value is a startup error, not a silent default.
type Config struct {
	Port string

	// Postgres connection, either DATABASE_URL or the DB_* parts
	DatabaseURL string

	// HMAC secret the data-access tokens are signed with (shared with the
	// database's token verification)
	DataTokenSecret string
	DataTokenTTL    time.Duration

	// Identity provider API
	IdentityAPIURL string
	IdentityAPIKey string

	// Email domains whose users are assigned the admin role at first login
	AdminEmailDomains []string

	AllowedOrigins []string
}

// Load reads and validates the environment. Every missing required secret is
// collected so the operator sees the full list at once.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DataTokenSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		DataTokenTTL:    time.Hour,
		IdentityAPIURL:  os.Getenv("IDP_API_URL"),
		IdentityAPIKey:  os.Getenv("IDP_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}

	if domains := os.Getenv("ADMIN_EMAIL_DOMAINS"); domains != "" {
		for _, d := range strings.Split(domains, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				cfg.AdminEmailDomains = append(cfg.AdminEmailDomains, d)
			}
		}
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.DataTokenSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if cfg.IdentityAPIURL == "" {
		missing = append(missing, "IDP_API_URL")
	}
	if cfg.IdentityAPIKey == "" {
		missing = append(missing, "IDP_API_KEY")
	}
	if len(cfg.AdminEmailDomains) == 0 {
		missing = append(missing, "ADMIN_EMAIL_DOMAINS")
	}
	if len(missing) > 0 {
		return nil, &apperr.ConfigError{Missing: missing}
	}

	return cfg, nil
}

// dsnFromParts assembles a Postgres DSN from the individual DB_* variables,
// with local-development defaults for everything but the password.
func dsnFromParts() string {
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	name := getenv("DB_NAME", "postgres")
	sslMode := getenv("DB_SSLMODE", "disable")

	if password == "" {
		return ""
	}

	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
