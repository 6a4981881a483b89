package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"CNSTRCT"`
		Port      int    `envconfig:"PORT" default:"8080"`
		PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
	}

	DB struct {
		URL      string `envconfig:"DATABASE_URL"`
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"cnstrct"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		JWTSecret  string `envconfig:"SUPABASE_JWT_SECRET"`
		CookieName string `envconfig:"AUTH_COOKIE_NAME" default:"sb-access-token"`
	}

	Stripe struct {
		SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
		WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	}

	Email struct {
		ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
		From          string `envconfig:"EMAIL_FROM" default:"support@updates.cnstrctnetwork.com"`
		TemplatesFile string `envconfig:"EMAIL_TEMPLATES_FILE"`
	}

	Storage struct {
		Backend   string `envconfig:"STORAGE_BACKEND" default:"local"`
		Dir       string `envconfig:"STORAGE_DIR" default:"./uploads"`
		PublicURL string `envconfig:"STORAGE_PUBLIC_URL" default:"http://localhost:8080/uploads"`
		Bucket    string `envconfig:"STORAGE_BUCKET" default:"documents"`
	}

	Queue struct {
		URL string `envconfig:"AMQP_URL"`
	}

	Redis struct {
		Addr     string        `envconfig:"REDIS_ADDR"`
		Password string        `envconfig:"REDIS_PASSWORD"`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		DedupTTL time.Duration `envconfig:"NOTIFICATION_DEDUP_TTL" default:"24h"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Migrations struct {
		Dir string `envconfig:"MIGRATIONS_DIR"`
	}
}

// ConnectionString prefers DATABASE_URL and falls back to the individual DB_* settings.
func (c *Config) ConnectionString() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
