package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	InboxDir   string

	LogLevel  string
	LogFormat string

	GeminiAPIKey     string
	GeminiModel      string
	AIMappingEnabled bool
	AIThreshold      float64
	AICacheTTL       time.Duration
	AICacheSize      int
	AIRateLimitRPS   int
	AITimeoutMs      int

	HeaderScanRows  int
	ReviewThreshold float64

	MappingConfigPath string
	StrictConfig      bool
	Mappings          MappingFile

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

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool
}

// MappingFile is the optional YAML file of header tables. DocumentTypes maps
// a document type to {header: field}; Synonyms extends the fuzzy dictionary
// for every document type.
type MappingFile struct {
	DocumentTypes map[string]map[string]string `yaml:"document_types"`
	Synonyms      map[string]string            `yaml:"synonyms"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		InboxDir:   getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AIMappingEnabled: getEnvBool("AI_MAPPING_ENABLED", true),
		AIThreshold:      getEnvFloat("AI_MAPPING_THRESHOLD", 0.7),
		AICacheTTL:       getEnvDuration("AI_CACHE_TTL", 7*24*time.Hour),
		AICacheSize:      getEnvInt("AI_CACHE_SIZE", 4096),
		AIRateLimitRPS:   getEnvInt("AI_RATE_LIMIT_RPS", 5),
		AITimeoutMs:      getEnvInt("AI_TIMEOUT_MS", 30000),

		HeaderScanRows:  getEnvInt("HEADER_SCAN_ROWS", 20),
		ReviewThreshold: getEnvFloat("REVIEW_THRESHOLD", 0.7),

		MappingConfigPath: getEnv("MAPPING_CONFIG_PATH", filepath.Join("config", "mappings.yaml")),
		StrictConfig:      getEnvBool("STRICT_CONFIG", false),

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

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "gmail"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 30),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = 20
	}
	cfg.AIThreshold = clamp01(cfg.AIThreshold)
	cfg.ReviewThreshold = clamp01(cfg.ReviewThreshold)

	mappings, err := LoadMappingFile(cfg.MappingConfigPath)
	if err != nil {
		if cfg.StrictConfig {
			return Config{}, err
		}
		fmt.Fprintf(os.Stderr, "mapping config ignored (%s): %v\n", cfg.MappingConfigPath, err)
	}
	cfg.Mappings = mappings

	return cfg, nil
}

// LoadMappingFile reads the YAML header tables. A missing file yields an empty
// MappingFile and no error.
func LoadMappingFile(path string) (MappingFile, error) {
	if strings.TrimSpace(path) == "" {
		return MappingFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return MappingFile{}, nil
		}
		return MappingFile{}, err
	}
	var mf MappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return MappingFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return mf, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutMs) * time.Millisecond
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
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
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvDuration accepts Go durations ("168h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
