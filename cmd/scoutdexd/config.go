package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields like "30m" or "1h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the daemon configuration. Secrets come from the environment
// (optionally via a .env file), everything else from the YAML file.
type Config struct {
	Env string `yaml:"env"`

	HTTP struct {
		Addr            string   `yaml:"addr"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Sync struct {
		Interval Duration `yaml:"interval"`
		DataFile string   `yaml:"data_file"`
	} `yaml:"sync"`

	Storage struct {
		Backend     string `yaml:"backend"` // local, minio or memory
		Path        string `yaml:"path"`
		Compression string `yaml:"compression"` // zstd, lz4 or none

		Minio struct {
			Endpoint  string `yaml:"endpoint"`
			Bucket    string `yaml:"bucket"`
			Prefix    string `yaml:"prefix"`
			UseSSL    bool   `yaml:"use_ssl"`
			AccessKey string `yaml:"-"`
			SecretKey string `yaml:"-"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	OpenAI struct {
		APIKey            string  `yaml:"-"`
		EmbeddingModel    string  `yaml:"embedding_model"`
		ChatModel         string  `yaml:"chat_model"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"openai"`

	Search struct {
		TopK         int `yaml:"top_k"`
		PromptBudget int `yaml:"prompt_budget"`
	} `yaml:"search"`
}

// LoadConfig reads the YAML file at path (optional) and overlays environment
// variables. A .env file in the working directory is honored when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Env = "production"
	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.ShutdownTimeout = Duration(10 * time.Second)
	cfg.Sync.Interval = Duration(time.Hour)
	cfg.Storage.Backend = "local"
	cfg.Storage.Path = "./scoutdex-data"
	cfg.Storage.Compression = "zstd"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Storage.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.Storage.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	if addr := os.Getenv("SCOUTDEX_HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("minio backend requires endpoint and bucket")
		}
		if c.Storage.Minio.AccessKey == "" || c.Storage.Minio.SecretKey == "" {
			return fmt.Errorf("minio backend requires MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
