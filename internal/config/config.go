package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/util"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
)

// Settings are the values read from the environment.
type Settings struct {
	Host             string        `env:"HOST" envDefault:"0.0.0.0"`
	Port             string        `env:"PORT" envDefault:"8000"`
	GinMode          string        `env:"GIN_MODE" envDefault:"release"`
	OllamaBaseURL    string        `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	DefaultModels    []string      `env:"DEFAULT_MODELS" envDefault:"wizard-math:7b,llama2" envSeparator:","`
	ModelsConfigPath string        `env:"MODELS_CONFIG_PATH" envDefault:"models.json"`
	AutoStartModels  bool          `env:"AUTO_START_MODELS" envDefault:"false"`
	ClientAPIKeys    []string      `env:"CLIENT_API_KEYS" envSeparator:","`
	RateLimit        int           `env:"RATE_LIMIT" envDefault:"0"`
	CORSAllowOrigin  string        `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`
	GenerateTimeout  time.Duration `env:"BACKEND_GENERATE_TIMEOUT" envDefault:"60s"`
	PullTimeout      time.Duration `env:"BACKEND_PULL_TIMEOUT" envDefault:"30m"`
	CatalogCacheTTL  time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`
	MCPEnabled       bool          `env:"MCP_ENABLED" envDefault:"true"`
	RedisURL         string        `env:"REDIS_URL"`
	StatsFile        string        `env:"STATS_FILE" envDefault:"stats.json"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Settings
	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface
	Logger             core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DialTimeout         time.Duration
	// RequestTimeout bounds every request when positive. Zero leaves the
	// bound to each operation's context.
	RequestTimeout time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
		DialTimeout:         core.HTTPDialTimeout,
	}
}

// Addr returns the listen address.
func (s Settings) Addr() string {
	return s.Host + ":" + s.Port
}

// Validate checks values env parsing cannot check on its own.
func (s Settings) Validate() error {
	if port, err := strconv.Atoi(s.Port); err != nil || port < 0 || port > 65535 {
		return core.ErrInvalidConfig("PORT", fmt.Sprintf("%q is not a valid port", s.Port))
	}
	u, err := url.Parse(s.OllamaBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return core.ErrInvalidConfig("OLLAMA_BASE_URL", fmt.Sprintf("%q is not an absolute URL", s.OllamaBaseURL))
	}
	if s.GenerateTimeout <= 0 {
		return core.ErrInvalidConfig("BACKEND_GENERATE_TIMEOUT", "must be positive")
	}
	if s.PullTimeout <= 0 {
		return core.ErrInvalidConfig("BACKEND_PULL_TIMEOUT", "must be positive")
	}
	if s.CatalogCacheTTL < 0 {
		return core.ErrInvalidConfig("CATALOG_CACHE_TTL", "must not be negative")
	}
	return nil
}

// LoadModelsConfig loads the list of models to pre-register.
// Accepted formats: {"models": ["a", "b"]}, {"models": {"a": "...", "b": "..."}} and ["a", "b"].
func LoadModelsConfig(path string) (core.ModelsConfig, error) {
	var config core.ModelsConfig

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from config, not user input
	if err != nil {
		return config, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var wrapper struct {
		Models any `json:"models"`
	}
	if err := sonic.Unmarshal(data, &wrapper); err == nil && wrapper.Models != nil {
		names, convErr := modelNames(wrapper.Models)
		if convErr != nil {
			return config, fmt.Errorf("failed to parse %s: %w", path, convErr)
		}
		config.Models = names
		return config, nil
	}

	var modelIDs []string
	if err := sonic.Unmarshal(data, &modelIDs); err != nil {
		return config, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	config.Models = util.UniqueStrings(modelIDs)
	return config, nil
}

func modelNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("model entry %v is not a string", item)
			}
			names = append(names, name)
		}
		return util.UniqueStrings(names), nil
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		return util.UniqueStrings(names), nil
	default:
		return nil, fmt.Errorf("unsupported models value of type %T", raw)
	}
}

// ResolveModels merges DEFAULT_MODELS with the models file. A missing file
// is only an error when MODELS_CONFIG_PATH was set explicitly.
func ResolveModels(settings Settings, logger core.Logger) ([]string, error) {
	models := append([]string(nil), settings.DefaultModels...)

	fileConfig, err := LoadModelsConfig(settings.ModelsConfigPath)
	switch {
	case err == nil:
		logger.Info("Loaded %d models from %s", len(fileConfig.Models), settings.ModelsConfigPath)
		models = append(models, fileConfig.Models...)
	case errors.Is(err, os.ErrNotExist) && settings.ModelsConfigPath == core.DefaultModelsConfigPath:
		logger.Debug("No %s found, using DEFAULT_MODELS only", settings.ModelsConfigPath)
	default:
		return nil, core.ErrConfigLoadFailed("models", err)
	}

	return util.UniqueStrings(models), nil
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return ServerConfig{}, core.ErrConfigLoadFailed("environment", err)
	}

	settings.ClientAPIKeys = util.UniqueStrings(settings.ClientAPIKeys)
	if len(settings.ClientAPIKeys) == 0 {
		logger.Warn("CLIENT_API_KEYS is empty, API authentication is disabled")
	} else {
		logger.Info("Loaded %d client API keys", len(settings.ClientAPIKeys))
	}

	switch {
	case settings.RateLimit < 0:
		logger.Warn("Invalid RATE_LIMIT value '%d', rate limiting is disabled", settings.RateLimit)
		settings.RateLimit = 0
	case settings.RateLimit == 0:
		logger.Info("RATE_LIMIT is not set, rate limiting is disabled")
	default:
		logger.Info("Rate limiting clients to %d requests per minute", settings.RateLimit)
	}

	if err := settings.Validate(); err != nil {
		return ServerConfig{}, err
	}

	models, err := ResolveModels(settings, logger)
	if err != nil {
		return ServerConfig{}, err
	}
	settings.DefaultModels = models

	return ServerConfig{
		Settings:           settings,
		HTTPClientSettings: DefaultHTTPClientSettings(),
	}, nil
}
