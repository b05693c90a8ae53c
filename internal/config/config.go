package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string `yaml:"port"`
	LogLevel       string `yaml:"logLevel"`
	DatabaseURL    string `yaml:"databaseURL"`
	JWTSecret      string `yaml:"jwtSecret"`
	SessionTTL     string `yaml:"sessionTTL"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`

	// "file" (default) or "minio".
	StorageBackend string `yaml:"storageBackend"`
	StorageDir     string `yaml:"storageDir"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	RegisterRateLimitPerMinute int    `yaml:"registerRateLimitPerMinute"`
	LoginRateLimitPerMinute    int    `yaml:"loginRateLimitPerMinute"`

	// "heuristic" (default), "ollama" or "openai".
	Generator       string `yaml:"generator"`
	OllamaURL       string `yaml:"ollamaURL"`
	GenerationModel string `yaml:"generationModel"`
	OpenAIBaseURL   string `yaml:"openaiBaseURL"`
	OpenAIAPIKey    string `yaml:"openaiApiKey"`
}

// Load reads config from path (defaults to config.yaml) and applies
// EDUPDF_* environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	overrideString(&cfg.Port, "EDUPDF_PORT")
	overrideString(&cfg.LogLevel, "EDUPDF_LOG_LEVEL")
	overrideString(&cfg.DatabaseURL, "EDUPDF_DATABASE_URL")
	overrideString(&cfg.JWTSecret, "EDUPDF_JWT_SECRET")
	overrideString(&cfg.SessionTTL, "EDUPDF_SESSION_TTL")
	overrideString(&cfg.StorageBackend, "EDUPDF_STORAGE_BACKEND")
	overrideString(&cfg.StorageDir, "EDUPDF_STORAGE_DIR")
	overrideString(&cfg.MinioEndpoint, "EDUPDF_MINIO_ENDPOINT")
	overrideString(&cfg.MinioAccessKey, "EDUPDF_MINIO_ACCESS_KEY")
	overrideString(&cfg.MinioSecretKey, "EDUPDF_MINIO_SECRET_KEY")
	overrideString(&cfg.MinioBucket, "EDUPDF_MINIO_BUCKET")
	overrideString(&cfg.RedisAddr, "EDUPDF_REDIS_ADDR")
	overrideString(&cfg.RedisPassword, "EDUPDF_REDIS_PASSWORD")
	overrideString(&cfg.Generator, "EDUPDF_GENERATOR")
	overrideString(&cfg.OllamaURL, "EDUPDF_OLLAMA_URL")
	overrideString(&cfg.GenerationModel, "EDUPDF_GENERATION_MODEL")
	overrideString(&cfg.OpenAIBaseURL, "EDUPDF_OPENAI_BASE_URL")
	overrideString(&cfg.OpenAIAPIKey, "EDUPDF_OPENAI_API_KEY")
	overrideInt(&cfg.RegisterRateLimitPerMinute, "EDUPDF_REGISTER_RATE_LIMIT_PER_MINUTE")
	overrideInt(&cfg.LoginRateLimitPerMinute, "EDUPDF_LOGIN_RATE_LIMIT_PER_MINUTE")
	if v := os.Getenv("EDUPDF_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func overrideString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func overrideInt(target *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml)")
	}
	// No default secret: a missing value must stop the process, not fall
	// back to something guessable.
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set EDUPDF_JWT_SECRET)")
	}
	switch cfg.StorageBackend {
	case "", "file":
		if cfg.StorageDir == "" {
			return errors.New("config: storageDir is required for the file storage backend")
		}
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for the minio storage backend")
		}
	default:
		return fmt.Errorf("config: unknown storageBackend %q", cfg.StorageBackend)
	}
	switch cfg.Generator {
	case "", "heuristic":
	case "ollama", "openai":
		if cfg.GenerationModel == "" {
			return fmt.Errorf("config: generationModel is required for the %s generator", cfg.Generator)
		}
	default:
		return fmt.Errorf("config: unknown generator %q", cfg.Generator)
	}
	if cfg.RegisterRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}
