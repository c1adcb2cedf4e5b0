package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

const (
	DefaultPath              = "config.json"
	DefaultUserAgent         = "Mozilla/5.0"
	DefaultCheckInterval     = 30 * time.Second
	DefaultDetailURLTemplate = "https://www.kiv.zcu.cz/studies/predmety/pc/assess.php?SID=%s"
	DefaultIdentityLookupURL = "https://stag-ws.zcu.cz/ws/services/rest2/orion/getOrionLoginByOsobniCislo"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ErrConfigMissing is returned when the config file or a required option is absent.
var ErrConfigMissing = errors.New("required configuration is missing")

// AppConfig holds all configuration for the application.
// Options come from the JSON config file, secrets from the environment.
type AppConfig struct {
	TargetURL          string
	UserAgent          string
	BrowserUserAgent   string // empty unless user_agent is set; Chrome keeps its own otherwise
	CheckInterval      time.Duration
	MyStudentID        string
	FallbackMentionID  string
	DetailURLTemplate  string
	IdentityLookupURL  string
	LoginSuccessMarker string
	ChromePath         string

	StateBackend string
	CookiesFile  string
	HistoryFile  string
	UsersFile    string

	SSOUsername    string
	SSOPassword    string
	WebhookURL     string
	TestWebhookURL string
	DatabaseURL    string
	TelegramToken  string
	TelegramChatID int64

	LogLevel    string
	Environment string
	LogFile     string
}

type fileConfig struct {
	TargetURL            string `json:"target_url"`
	UserAgent            string `json:"user_agent"`
	CheckIntervalSeconds int    `json:"check_interval_seconds"`
	MyStudentID          string `json:"my_student_id"`
	MentionFallback      string `json:"discord_user_id_to_ping"`
	DetailURLTemplate    string `json:"detail_url_template"`
	IdentityLookupURL    string `json:"identity_lookup_url"`
	LoginSuccessMarker   string `json:"login_success_marker"`
	ChromePath           string `json:"chrome_path"`
	StateBackend         string `json:"state_backend"`
	CookiesFile          string `json:"cookies_file"`
	HistoryFile          string `json:"history_file"`
	UsersFile            string `json:"users_file"`
}

// PathFromEnv returns the config file location, WATCHDOG_CONFIG overriding the default.
func PathFromEnv() string {
	if p := os.Getenv("WATCHDOG_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the config file at path and the secrets from environment
// variables and .env file (if present).
func Load(path string) (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file %s not found", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json5.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg := &AppConfig{}

	cfg.TargetURL = strings.TrimSpace(fc.TargetURL)
	if cfg.TargetURL == "" {
		return nil, fmt.Errorf("%w: target_url is not set", ErrConfigMissing)
	}
	target, err := url.Parse(cfg.TargetURL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid target_url %q", cfg.TargetURL)
	}

	cfg.UserAgent = fc.UserAgent
	cfg.BrowserUserAgent = fc.UserAgent
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	cfg.CheckInterval = DefaultCheckInterval
	if fc.CheckIntervalSeconds > 0 {
		cfg.CheckInterval = time.Duration(fc.CheckIntervalSeconds) * time.Second
	}

	cfg.MyStudentID = fc.MyStudentID
	cfg.FallbackMentionID = fc.MentionFallback
	cfg.ChromePath = fc.ChromePath

	cfg.DetailURLTemplate = fc.DetailURLTemplate
	if cfg.DetailURLTemplate == "" {
		cfg.DetailURLTemplate = DefaultDetailURLTemplate
	}
	if !strings.Contains(cfg.DetailURLTemplate, "%s") {
		return nil, fmt.Errorf("detail_url_template %q has no %%s placeholder", cfg.DetailURLTemplate)
	}

	cfg.IdentityLookupURL = fc.IdentityLookupURL
	if cfg.IdentityLookupURL == "" {
		cfg.IdentityLookupURL = DefaultIdentityLookupURL
	}

	cfg.LoginSuccessMarker = fc.LoginSuccessMarker
	if cfg.LoginSuccessMarker == "" {
		cfg.LoginSuccessMarker = target.Hostname()
	}

	cfg.StateBackend = strings.ToLower(fc.StateBackend)
	if cfg.StateBackend == "" {
		cfg.StateBackend = BackendFile
	}
	cfg.CookiesFile = orDefault(fc.CookiesFile, "cookies.json")
	cfg.HistoryFile = orDefault(fc.HistoryFile, "history.json")
	cfg.UsersFile = orDefault(fc.UsersFile, "users.json")

	cfg.SSOUsername = os.Getenv("ORION_USERNAME")
	cfg.SSOPassword = os.Getenv("ORION_PASSWORD")
	cfg.WebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	cfg.TestWebhookURL = os.Getenv("DISCORD_TEST_WEBHOOK_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	switch cfg.StateBackend {
	case BackendFile:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL is not set", ErrConfigMissing)
		}
	default:
		return nil, fmt.Errorf("unknown state_backend %q", cfg.StateBackend)
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.LogFile = os.Getenv("LOG_FILE")
	if cfg.LogFile == "" {
		cfg.LogFile = "monitor.log"
	}

	return cfg, nil
}

// DetailURL returns the assessment detail page for a student.
func (c *AppConfig) DetailURL(studentID string) string {
	return fmt.Sprintf(c.DetailURLTemplate, url.QueryEscape(studentID))
}

// TelegramEnabled reports whether the Telegram mirror is configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
