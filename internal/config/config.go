package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Doubao    DoubaoConfig    `mapstructure:"doubao"`
	Qwen      QwenConfig      `mapstructure:"qwen"`
	Prompts   PromptConfig    `mapstructure:"prompts"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Upload    UploadConfig    `mapstructure:"upload"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig selects the upstream provider: gemini, openai, doubao, qwen or mock.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	// DebugRequests logs outgoing upstream requests with credentials redacted.
	DebugRequests bool `mapstructure:"debug_requests"`
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DoubaoConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type QwenConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PromptConfig holds the fixed system instructions. Empty values fall back to
// the built-in defaults in the service package. The analyzer instruction is an
// FString template and may reference {context}.
type PromptConfig struct {
	Analyze  string `mapstructure:"analyze"`
	Analyzer string `mapstructure:"analyzer"`
	Advisor  string `mapstructure:"advisor"`
	Hub      string `mapstructure:"hub"`
}

type ChatConfig struct {
	StreamTimeout      time.Duration `mapstructure:"stream_timeout"`
	MaxHistoryMessages int           `mapstructure:"max_history_messages"`
}

type UploadConfig struct {
	MaxFileBytes     int64    `mapstructure:"max_file_bytes"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

var ErrMissingAPIKey = errors.New("upstream API key is not set")

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.debug_requests", false)

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.timeout", 2*time.Minute)

	v.SetDefault("doubao.timeout", 2*time.Minute)

	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 4096)
	v.SetDefault("qwen.temperature", 0.2)
	v.SetDefault("qwen.top_p", 0.9)
	v.SetDefault("qwen.timeout", 2*time.Minute)

	v.SetDefault("chat.stream_timeout", 10*time.Minute)
	v.SetDefault("chat.max_history_messages", 0)

	v.SetDefault("upload.max_file_bytes", 10*1024*1024)
	v.SetDefault("upload.allowed_mime_types", []string{
		"application/pdf",
		"text/plain",
		"text/markdown",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)
}

// Load reads the YAML file at configPath (optional when it does not exist),
// applies DEMYSTIFIER_* environment overrides and fills API keys from the
// provider environment variables when the file leaves them empty.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("DEMYSTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnvKeys(loaded)

	cfg = loaded
	return cfg, nil
}

// Values from the config file win; environment variables only fill gaps.
func applyEnvKeys(c *Config) {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = firstEnv("OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		c.Doubao.APIKey = firstEnv("DOUBAO_API_KEY", "ARK_API_KEY")
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = firstEnv("DASHSCOPE_API_KEY", "QWEN_API_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports configuration the server cannot start with. Only the mock
// provider runs without an upstream credential.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	var key string
	switch c.Model.Provider {
	case "gemini":
		key = c.Gemini.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "doubao":
		key = c.Doubao.APIKey
	case "qwen":
		key = c.Qwen.APIKey
	case "mock":
		return nil
	default:
		return fmt.Errorf("unsupported model provider: %q", c.Model.Provider)
	}

	if key == "" {
		return fmt.Errorf("%w for provider %s", ErrMissingAPIKey, c.Model.Provider)
	}
	return nil
}

func Get() *Config {
	return cfg
}
