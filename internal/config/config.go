package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	UploadDir string
	OutputDir string

	LayoutAPIURL       string
	LayoutAPIToken     string
	LayoutTimeoutMs    int
	LayoutRateLimitRPS int
	LayoutMaxAttempts  int

	ImageDownloadWorkers int
	MaxUploadMB          int

	VATPercent        float64
	AlternativesLimit int
	BrandCatalogPath  string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	RawMailDir              string
	MailListenerProvider    string
	MailListenerLabel       string
	MailListenerIntervalSec int
	MailListenerFetchMax    int
	MailListenerSession     string
	MailListenerAutoExport  bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "sessions.db")),
		UploadDir: getEnv("UPLOAD_DIR", filepath.Join(cwd, "data", "uploads")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LayoutAPIURL:       getEnv("LAYOUT_API_URL", ""),
		LayoutAPIToken:     getEnv("LAYOUT_API_TOKEN", ""),
		LayoutTimeoutMs:    getEnvInt("LAYOUT_TIMEOUT_MS", 60000),
		LayoutRateLimitRPS: getEnvInt("LAYOUT_RATE_LIMIT_RPS", 2),
		LayoutMaxAttempts:  getEnvInt("LAYOUT_MAX_ATTEMPTS", 4),

		ImageDownloadWorkers: getEnvInt("IMAGE_DOWNLOAD_WORKERS", 4),
		MaxUploadMB:          getEnvInt("MAX_UPLOAD_MB", 16),

		VATPercent:        getEnvFloat("VAT_PERCENT", 15),
		AlternativesLimit: getEnvInt("ALTERNATIVES_LIMIT", 5),
		BrandCatalogPath:  getEnv("BRAND_CATALOG_PATH", ""),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		RawMailDir:              getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		MailListenerProvider:    getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:       getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec: getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:    getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerSession:     getEnv("MAIL_LISTENER_SESSION", "inbox"),
		MailListenerAutoExport:  getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
