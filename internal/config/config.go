package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/modsearch/internal/search"
	"github.com/joho/godotenv"
)

// Grant types accepted by the platform token endpoint.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

type Config struct {
	Port string

	// Platform connection
	Subdomain         string
	BaseURL           string
	DefinitionBaseURL string
	GrantType         string
	Username          string
	Password          string
	ClientID          string
	ClientSecret      string
	HTTPProxy         string
	HTTPSProxy        string
	RequestTimeout    time.Duration

	ApplicationID string

	// Output
	OutputDir          string
	ModuleListFilename string

	// Downloads
	DownloadConcurrency int

	// Search
	ValueCutoff   int
	PathSeparator string
	ChildrenKey   string
	IDKey         string
	SearchTarget  string
	SearchExact   bool

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit env file, which must exist.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("load env file %s: %w", path, err)
	}
	return fromEnv(), nil
}

func fromEnv() Config {
	subdomain := os.Getenv("SUBDOMAIN")

	cfg := Config{
		Port: envOr("PORT", "8090"),

		Subdomain:         subdomain,
		BaseURL:           envOr("BASE_URL", platformURL(subdomain, "/api/1.0")),
		DefinitionBaseURL: envOr("DEFINITION_BASE_URL", platformURL(subdomain, "/fbu/form")),
		GrantType:         envOr("GRANT_TYPE", GrantPassword),
		Username:          os.Getenv("PLATFORM_USERNAME"),
		Password:          os.Getenv("PLATFORM_PASSWORD"),
		ClientID:          os.Getenv("PLATFORM_CLIENT_ID"),
		ClientSecret:      os.Getenv("PLATFORM_CLIENT_SECRET"),
		HTTPProxy:         os.Getenv("HTTP_PROXY_URL"),
		HTTPSProxy:        os.Getenv("HTTPS_PROXY_URL"),
		RequestTimeout:    envDuration("REQUEST_TIMEOUT", 30*time.Second),

		ApplicationID: os.Getenv("APPLICATION_ID"),

		OutputDir:          envOr("OUTPUT_DIR", "searchResults"),
		ModuleListFilename: envOr("MODULE_LIST_FILENAME", "list_of_modules.txt"),

		DownloadConcurrency: envInt("DOWNLOAD_CONCURRENCY", 2),

		ValueCutoff:   envInt("VALUE_CUTOFF", search.DefaultCutoff),
		PathSeparator: envOr("PATH_SEPARATOR", search.DefaultSeparator),
		ChildrenKey:   envOr("CHILDREN_KEY", search.DefaultChildrenKey),
		IDKey:         envOr("ID_KEY", search.DefaultIDKey),
		SearchTarget:  os.Getenv("SEARCH_TARGET"),
		SearchExact:   envBool("SEARCH_EXACT", false),

		APIKey: os.Getenv("MODSEARCH_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 20),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 2
	}
	if cfg.ValueCutoff <= 0 {
		cfg.ValueCutoff = search.DefaultCutoff
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// SearchOptions projects the path-naming settings used by the searcher.
func (c Config) SearchOptions() search.Options {
	return search.Options{
		Cutoff:      c.ValueCutoff,
		Separator:   c.PathSeparator,
		ChildrenKey: c.ChildrenKey,
		IDKey:       c.IDKey,
	}
}

// ValidateRemote checks the settings needed to download definitions.
// Password-grant credentials may still be prompted for interactively, so
// only their grant type is checked here.
func (c Config) ValidateRemote() error {
	if c.BaseURL == "" {
		return fmt.Errorf("SUBDOMAIN or BASE_URL is required")
	}
	if c.DefinitionBaseURL == "" {
		return fmt.Errorf("SUBDOMAIN or DEFINITION_BASE_URL is required")
	}
	if c.ApplicationID == "" {
		return fmt.Errorf("APPLICATION_ID is required")
	}
	switch c.GrantType {
	case GrantPassword:
	case GrantClientCredentials:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("PLATFORM_CLIENT_ID and PLATFORM_CLIENT_SECRET are required for %s grant", GrantClientCredentials)
		}
	default:
		return fmt.Errorf("GRANT_TYPE must be %q or %q, got %q", GrantPassword, GrantClientCredentials, c.GrantType)
	}
	return nil
}

// ValidateServer checks the settings needed to run the HTTP API.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("MODSEARCH_API_KEY is required")
	}
	if c.ApplicationID == "" {
		return fmt.Errorf("APPLICATION_ID is required")
	}
	return nil
}

// Level parses LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func platformURL(subdomain, path string) string {
	if subdomain == "" {
		return ""
	}
	return "https://" + strings.TrimSpace(subdomain) + ".unqork.io" + path
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
