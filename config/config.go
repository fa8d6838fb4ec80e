package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
)

// Config holds everything the server reads from the environment.
// Unset values fall back to the `default` tags.
type Config struct {
	Port    string `default:"8080"`
	GinMode string `default:"debug"`

	StoreDriver   string `default:"mongo"`
	MongoURI      string `default:"mongodb://127.0.0.1:27017"`
	MongoDatabase string `default:"challenges"`
	BadgerPath    string `default:"data/badger"`

	// SeedSubscribers is only applied to the badger store.
	SeedSubscribers []string

	JWTSecret   string
	AdminEmails []string

	// BootstrapAdminEmail gets an admin account with BootstrapAdminHash
	// (a bcrypt hash from cmd/gensecret) when it does not exist yet.
	BootstrapAdminEmail string
	BootstrapAdminHash  string

	CloudinaryURL string
	UploadFolder  string        `default:"uploads"`
	UploadTimeout time.Duration `default:"30s"`

	SMTPHost         string `default:"smtp.gmail.com"`
	SMTPPort         int    `default:"465"`
	MailFrom         string
	MailPassword     string
	MailSendTimeout  time.Duration `default:"15s"`
	MailRoundTimeout time.Duration `default:"60s"`
	MailWorkers      int           `default:"4"`
	SiteURL          string        `default:"https://jeanpierreportfolio.netlify.app"`

	CORSOrigins []string `default:"[\"http://localhost:3000\",\"http://localhost:5500\",\"http://127.0.0.1:5500\"]"`
	RateLimit   int      `default:"60"`
	LogLevel    string   `default:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Port:          os.Getenv("PORT"),
		GinMode:       os.Getenv("GIN_MODE"),
		StoreDriver:   os.Getenv("STORE_DRIVER"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: os.Getenv("MONGODB_DATABASE"),
		BadgerPath:    os.Getenv("BADGER_PATH"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminEmails:   splitList(os.Getenv("ADMIN_EMAILS")),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		UploadFolder:  os.Getenv("UPLOAD_FOLDER"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		MailFrom:      os.Getenv("ADMIN_EMAIL"),
		MailPassword:  os.Getenv("ADMIN_PSWD"),
		SiteURL:       os.Getenv("SITE_URL"),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}

	cfg.SeedSubscribers = splitList(os.Getenv("SEED_SUBSCRIBERS"))
	cfg.BootstrapAdminEmail = strings.TrimSpace(os.Getenv("ADMIN_BOOTSTRAP_EMAIL"))
	cfg.BootstrapAdminHash = os.Getenv("ADMIN_PASSWORD_HASH")

	var err error
	if cfg.UploadTimeout, err = envDuration("UPLOAD_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.MailSendTimeout, err = envDuration("MAIL_SEND_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.MailRoundTimeout, err = envDuration("MAIL_ROUND_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = envInt("SMTP_PORT"); err != nil {
		return nil, err
	}
	if cfg.MailWorkers, err = envInt("MAIL_WORKERS"); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	// RATE_LIMIT=0 turns the limiter off, so it is applied after the defaults.
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if cfg.RateLimit, err = envInt("RATE_LIMIT"); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.StoreDriver {
	case DriverMongo, DriverBadger:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminHash == "") {
		return errors.New("ADMIN_BOOTSTRAP_EMAIL and ADMIN_PASSWORD_HASH must be set together")
	}
	if c.MailWorkers < 1 {
		return fmt.Errorf("MAIL_WORKERS must be positive, got %d", c.MailWorkers)
	}
	return nil
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdmin(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
