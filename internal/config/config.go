package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// WhatsApp gateway modes.
const (
	ModeCloud  = "cloud"
	ModeLinked = "linked"
)

const minJWTSecretLen = 16

// Config holds the server configuration loaded from the environment.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	JWTSecret string

	WhatsApp WhatsAppConfig
	Push     PushConfig

	SendTimeout         time.Duration
	ChunkTimeout        time.Duration
	ClaimLease          time.Duration
	SweepSchedule       string
	InvitesRequireAdmin bool
}

type WhatsAppConfig struct {
	Mode          string
	AccessToken   string
	PhoneNumberID string
	AppLink       string
	APIBaseURL    string
	// DataDir holds the linked-device session store.
	DataDir            string
	DefaultCountryCode string
}

type PushConfig struct {
	ProjectID       string
	CredentialsFile string
	Concurrency     int
}

// Enabled reports whether push credentials were provided.
func (p PushConfig) Enabled() bool {
	return p.ProjectID != "" && p.CredentialsFile != ""
}

// Load reads a .env file when present, then the environment. Missing gateway
// credentials are not an error here; they are reported per call.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("WEDDINGBELL_PORT", "8080"),
		DBPath:    getEnv("WEDDINGBELL_DB_PATH", "weddingbell.db"),
		LogLevel:  getEnv("WEDDINGBELL_LOG_LEVEL", "info"),
		JWTSecret: getEnv("WEDDINGBELL_JWT_SECRET", ""),
		WhatsApp: WhatsAppConfig{
			Mode:               strings.ToLower(getEnv("WHATSAPP_MODE", ModeCloud)),
			AccessToken:        getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID:      getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			AppLink:            getEnv("APP_LINK", "https://yourapp.com/download"),
			APIBaseURL:         getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com"),
			DataDir:            getEnv("WHATSAPP_DATA_DIR", "data"),
			DefaultCountryCode: getEnv("WHATSAPP_DEFAULT_COUNTRY_CODE", ""),
		},
		Push: PushConfig{
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Concurrency:     getEnvAsInt("FCM_CONCURRENCY", 16),
		},
		SendTimeout:         getEnvAsDuration("WEDDINGBELL_SEND_TIMEOUT", 10*time.Second),
		ChunkTimeout:        getEnvAsDuration("WEDDINGBELL_CHUNK_TIMEOUT", 60*time.Second),
		ClaimLease:          getEnvAsDuration("WEDDINGBELL_CLAIM_LEASE", 15*time.Minute),
		SweepSchedule:       getEnv("WEDDINGBELL_SWEEP_SCHEDULE", "*/5 * * * *"),
		InvitesRequireAdmin: getEnvAsBool("WEDDINGBELL_INVITES_REQUIRE_ADMIN", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports malformed values.
func (c *Config) Validate() error {
	var problems []string

	if _, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("WEDDINGBELL_PORT %q is not a number", c.Port))
	}
	if c.DBPath == "" {
		problems = append(problems, "WEDDINGBELL_DB_PATH is empty")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLen {
		problems = append(problems, fmt.Sprintf("WEDDINGBELL_JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.WhatsApp.Mode != ModeCloud && c.WhatsApp.Mode != ModeLinked {
		problems = append(problems, fmt.Sprintf("WHATSAPP_MODE %q must be %q or %q", c.WhatsApp.Mode, ModeCloud, ModeLinked))
	}
	if c.Push.Concurrency < 1 {
		problems = append(problems, "FCM_CONCURRENCY must be positive")
	}
	if c.SendTimeout <= 0 || c.ChunkTimeout <= 0 || c.ClaimLease <= 0 {
		problems = append(problems, "timeouts and claim lease must be positive")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("WEDDINGBELL_SWEEP_SCHEDULE: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogPresence logs which gateway credentials are set without their values.
func (c *Config) LogPresence(logger *slog.Logger) {
	logger.Info("gateway configuration",
		"whatsapp_mode", c.WhatsApp.Mode,
		"whatsapp_access_token", c.WhatsApp.AccessToken != "",
		"whatsapp_phone_number_id", c.WhatsApp.PhoneNumberID != "",
		"fcm_project_id", c.Push.ProjectID != "",
		"fcm_credentials", c.Push.CredentialsFile != "",
		"jwt_secret", c.JWTSecret != "",
	)
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			slog.Warn("invalid int, using default", "key", key, "default", def, "error", err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			slog.Warn("invalid duration, using default", "key", key, "default", def, "error", err)
			return def
		}
		return d
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			slog.Warn("invalid bool, using default", "key", key, "default", def, "error", err)
			return def
		}
		return b
	}
	return def
}
