package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment (.env is loaded
// first when present).
type Config struct {
	GinMode     string `envconfig:"GIN_MODE" default:"release"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	PublicURL   string `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      int    `envconfig:"DB_PORT" default:"3306"`
	DBDatabase  string `envconfig:"DB_DATABASE" default:"journal"`
	DBUsername  string `envconfig:"DB_USERNAME" default:"root"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DebugSQL    bool   `envconfig:"DEBUG_SQL" default:"false"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"24"`

	SMTPHost          string `envconfig:"SMTP_HOST"`
	SMTPPort          int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser          string `envconfig:"SMTP_USER"`
	SMTPPass          string `envconfig:"SMTP_PASS"`
	SMTPFrom          string `envconfig:"SMTP_FROM"`
	SMTPSkipTLSVerify bool   `envconfig:"SMTP_SKIP_TLS_VERIFY" default:"false"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisChannel  string `envconfig:"REDIS_EVENTS_CHANNEL" default:"journal:events"`

	PublicationBaseFee   float64 `envconfig:"PUBLICATION_BASE_FEE" default:"0"`
	PublicationPageFee   float64 `envconfig:"PUBLICATION_PAGE_FEE" default:"0"`
	PublicationFreePages int     `envconfig:"PUBLICATION_FREE_PAGES" default:"10"`
	PublicationCurrency  string  `envconfig:"PUBLICATION_CURRENCY" default:"USD"`

	ReminderSchedule      string `envconfig:"REMINDER_SCHEDULE" default:"0 8 * * *"`
	ReminderIntervalHours int    `envconfig:"REMINDER_INTERVAL_HOURS" default:"72"`

	OrcidBaseURL      string `envconfig:"ORCID_BASE_URL" default:"https://orcid.org"`
	OrcidClientID     string `envconfig:"ORCID_CLIENT_ID"`
	OrcidClientSecret string `envconfig:"ORCID_CLIENT_SECRET"`
	OrcidRedirectURL  string `envconfig:"ORCID_REDIRECT_URL"`

	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogFile            string        `envconfig:"LOG_FILE" default:"logs/journal-api.log"`
	LogsToken          string        `envconfig:"LOGS_TOKEN"`
	NotifyWorkers      int           `envconfig:"NOTIFY_WORKERS" default:"2"`
	NotifyQueueSize    int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	CatalogCacheTTL    time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"1m"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "mysql", "postgres", "memory":
	default:
		return errors.Errorf("DB_DRIVER must be mysql, postgres or memory, got %q", c.DBDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.PublicationBaseFee < 0 || c.PublicationPageFee < 0 || c.PublicationFreePages < 0 {
		return errors.New("publication charges cannot be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalHours) * time.Hour
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	if strings.EqualFold(c.DBDriver, "postgres") {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			c.DBHost, c.DBUsername, c.DBPassword, c.DBDatabase, c.DBPort)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase)
}
