package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Workflow  WorkflowConfig
	Ticketing TicketingConfig
	Assistant AssistantConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Knowledge KnowledgeConfig
	Session   SessionConfig
	Status    StatusConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   int
	WriteTimeout  int
	BodyLimit     int
	AllowOrigins  string
	IsDevelopment bool
}

type WorkflowConfig struct {
	BaseURL    string
	WorkflowID string
	// Encoding is "urlencoded" or "multipart".
	Encoding   string
	TimeoutSec int
}

type TicketingConfig struct {
	BaseURL     string
	ListLimit   int
	SearchLimit int
	TimeoutSec  int
}

type AssistantConfig struct {
	// Provider is "workflow" or "openai".
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type SQLiteConfig struct {
	Path string
}

type KnowledgeConfig struct {
	Dir string
}

type SessionConfig struct {
	IdleTimeoutSec     int
	CleanupIntervalSec int
}

type StatusConfig struct {
	Schedule string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Timeout converts a seconds setting into a duration; zero means none.
func Timeout(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

// Load reads .env, config.yaml and SUPPORT_CONSOLE_* variables, in
// increasing precedence. An explicit path overrides the search paths.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/support-console")
	}

	v.SetEnvPrefix("SUPPORT_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Workflow.Encoding {
	case "urlencoded", "multipart":
	default:
		return fmt.Errorf("workflow.encoding must be urlencoded or multipart, got %q", c.Workflow.Encoding)
	}
	switch c.Assistant.Provider {
	case "workflow":
	case "openai":
		if c.Assistant.APIKey == "" {
			return fmt.Errorf("assistant.apiKey is required when assistant.provider is openai")
		}
	default:
		return fmt.Errorf("assistant.provider must be workflow or openai, got %q", c.Assistant.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.bodyLimit", 20971520)
	v.SetDefault("server.allowOrigins", "*")
	v.SetDefault("server.isDevelopment", true)

	v.SetDefault("workflow.baseURL", "http://localhost:7777")
	v.SetDefault("workflow.workflowID", "rag-customer-support-resolution-pipeline")
	v.SetDefault("workflow.encoding", "urlencoded")
	v.SetDefault("workflow.timeoutSec", 0)

	v.SetDefault("ticketing.baseURL", "http://localhost:8000")
	v.SetDefault("ticketing.listLimit", 100)
	v.SetDefault("ticketing.searchLimit", 50)
	v.SetDefault("ticketing.timeoutSec", 0)

	v.SetDefault("assistant.provider", "workflow")
	v.SetDefault("assistant.model", "gpt-4")
	v.SetDefault("assistant.temperature", 0.2)
	v.SetDefault("assistant.maxTokens", 1024)
	v.SetDefault("assistant.apiKey", "")
	v.SetDefault("assistant.timeoutSec", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("sqlite.path", "./data/knowledge.db")
	v.SetDefault("knowledge.dir", "./data/documents")

	v.SetDefault("session.idleTimeoutSec", 1800)
	v.SetDefault("session.cleanupIntervalSec", 60)

	v.SetDefault("status.schedule", "@every 30s")

	v.SetDefault("ratelimit.requestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
