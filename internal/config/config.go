// Package config loads application settings from an optional YAML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the llm and embedding sections.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Vector store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Catalog struct {
		Path  string `yaml:"path" env:"CATALOG_PATH"`
		Watch bool   `yaml:"watch" env:"CATALOG_WATCH"`

		Source struct {
			Endpoint  string        `yaml:"endpoint" env:"CATALOG_SOURCE_ENDPOINT"`
			Playlists string        `yaml:"playlists" env:"CATALOG_SOURCE_PLAYLISTS"`
			CSRFToken string        `yaml:"csrf_token" env:"BT_CSRFTOKEN"`
			Timeout   time.Duration `yaml:"timeout" env:"CATALOG_SOURCE_TIMEOUT"`
			Attempts  int           `yaml:"attempts" env:"CATALOG_SOURCE_ATTEMPTS"`
		} `yaml:"source"`
	} `yaml:"catalog"`

	LLM struct {
		Provider string        `yaml:"provider" env:"LLM_PROVIDER"`
		BaseURL  string        `yaml:"base_url" env:"LLM_BASE_URL"`
		Model    string        `yaml:"model" env:"LLM_MODEL"`
		Timeout  time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	} `yaml:"llm"`

	Embedding struct {
		Provider string        `yaml:"provider" env:"EMBEDDING_PROVIDER"`
		BaseURL  string        `yaml:"base_url" env:"EMBEDDING_BASE_URL"`
		Model    string        `yaml:"model" env:"EMBEDDING_MODEL"`
		Timeout  time.Duration `yaml:"timeout" env:"EMBEDDING_TIMEOUT"`
	} `yaml:"embedding"`

	OpenAI struct {
		APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`
	} `yaml:"openai"`

	VectorDB struct {
		Driver string `yaml:"driver" env:"VECTORDB_DRIVER"`
		Path   string `yaml:"path" env:"VECTORDB_PATH"`
	} `yaml:"vectordb"`

	Oracle struct {
		Timeout         time.Duration `yaml:"timeout" env:"ORACLE_TIMEOUT"`
		Attempts        int           `yaml:"attempts" env:"ORACLE_ATTEMPTS"`
		RetryDelay      time.Duration `yaml:"retry_delay" env:"ORACLE_RETRY_DELAY"`
		BreakerFailures int           `yaml:"breaker_failures" env:"ORACLE_BREAKER_FAILURES"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown" env:"ORACLE_BREAKER_COOLDOWN"`
	} `yaml:"oracle"`

	Index struct {
		ChunkSize    int `yaml:"chunk_size" env:"INDEX_CHUNK_SIZE"`
		ChunkOverlap int `yaml:"chunk_overlap" env:"INDEX_CHUNK_OVERLAP"`
		TopK         int `yaml:"top_k" env:"INDEX_TOP_K"`
	} `yaml:"index"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and the environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Addr = ":8080"
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 120 * time.Second
	config.Server.ShutdownTimeout = 5 * time.Second
	config.Server.AllowedOrigins = []string{"*"}

	config.Catalog.Path = "data/courses.json"
	config.Catalog.Source.Endpoint = "https://berkeleytime.com/api/graphql"
	config.Catalog.Source.Playlists = "UGxheWxpc3RUeXBlOjMyNTY1"
	config.Catalog.Source.Timeout = 30 * time.Second
	config.Catalog.Source.Attempts = 3

	// base URL and model are left empty so each provider applies its own
	config.LLM.Provider = ProviderOllama
	config.LLM.Timeout = 120 * time.Second

	config.Embedding.Provider = ProviderOllama
	config.Embedding.Timeout = 60 * time.Second

	config.VectorDB.Driver = StoreSQLite
	config.VectorDB.Path = "data/index.db"

	config.Oracle.Timeout = 60 * time.Second
	config.Oracle.Attempts = 2
	config.Oracle.RetryDelay = time.Second
	config.Oracle.BreakerFailures = 5
	config.Oracle.BreakerCooldown = 30 * time.Second

	config.Index.ChunkSize = 500
	config.Index.ChunkOverlap = 50
	config.Index.TopK = 4

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}

	for name, provider := range map[string]string{"llm": config.LLM.Provider, "embedding": config.Embedding.Provider} {
		switch provider {
		case ProviderOllama:
		case ProviderOpenAI:
			if config.OpenAI.APIKey == "" {
				return fmt.Errorf("%s provider %q requires OPENAI_API_KEY", name, provider)
			}
		default:
			return fmt.Errorf("unknown %s provider %q", name, provider)
		}
	}

	switch config.VectorDB.Driver {
	case StoreMemory:
	case StoreSQLite:
		if config.VectorDB.Path == "" {
			return fmt.Errorf("vectordb path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown vectordb driver %q", config.VectorDB.Driver)
	}

	if config.Index.ChunkSize <= 0 {
		return fmt.Errorf("index chunk size must be positive")
	}
	if config.Index.ChunkOverlap < 0 || config.Index.ChunkOverlap >= config.Index.ChunkSize {
		return fmt.Errorf("index chunk overlap must be in [0, chunk size)")
	}
	if config.Oracle.Attempts < 1 {
		return fmt.Errorf("oracle attempts must be at least 1")
	}
	if config.Oracle.BreakerFailures < 1 {
		return fmt.Errorf("oracle breaker failures must be at least 1")
	}

	switch strings.ToLower(config.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", config.Logging.Format)
	}

	return nil
}

// CatalogCookie renders the Cookie header for the catalog API. A value that
// already looks like a cookie string is sent as is; a bare token becomes
// "csrftoken=<token>".
func (c *Config) CatalogCookie() string {
	token := strings.TrimSpace(c.Catalog.Source.CSRFToken)
	if token == "" || strings.Contains(token, "=") {
		return token
	}
	return "csrftoken=" + token
}

// PrettyLogs reports whether logs should be written for humans.
func (c *Config) PrettyLogs() bool {
	return strings.EqualFold(c.Logging.Format, "console")
}
