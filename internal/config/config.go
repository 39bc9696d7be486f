package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "distill"
	defaultDBCharset  = "utf8mb4"
	defaultRedisURL   = "redis://localhost:6379/0"
)

// Load reads the YAML config file, applies environment overrides and
// defaults. A missing file is not an error; env vars and defaults apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	// A bare OPENAI_API_KEY is enough to run the whole pipeline against
	// OpenAI with no config file.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if len(cfg.AI.Providers) == 0 {
			cfg.AI.Providers = []AIProvider{{
				ID:      "openai",
				Name:    "OpenAI",
				Type:    "openai",
				APIKey:  v,
				Enabled: true,
			}}
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.Transcription.APIKey == "" {
			cfg.Transcription.APIKey = v
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DSN == "" {
		cfg.DSN = buildDSN(cfg.Database)
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.MaxRetries < 0 {
		cfg.Pipeline.MaxRetries = 0
	}
	if cfg.Pipeline.RelatedLimit <= 0 {
		cfg.Pipeline.RelatedLimit = 3
	}
	if cfg.Transcripts.Language == "" {
		cfg.Transcripts.Language = "en"
	}
}

func buildDSN(db DatabaseRuntimeConfig) string {
	host := db.Host
	if host == "" {
		host = defaultDBHost
	}
	port := db.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := db.User
	if user == "" {
		user = defaultDBUser
	}
	password := db.Password
	if password == "" {
		password = defaultDBPassword
	}
	name := db.Name
	if name == "" {
		name = defaultDBName
	}
	charset := db.Charset
	if charset == "" {
		charset = defaultDBCharset
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		user, password, host, port, name, charset)
}
