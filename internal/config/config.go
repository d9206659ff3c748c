// Package config handles loading and validating the shouldi configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nadzzz/shouldi/internal/message"
)

// Config is the root configuration for shouldi.
type Config struct {
	Server     ServerConfig             `mapstructure:"server"`
	Transports TransportsConfig         `mapstructure:"transports"`
	Model      ModelConfig              `mapstructure:"model"`
	Generation message.GenerationParams `mapstructure:"generation"`
	Language   string                   `mapstructure:"language"`
	Search     SearchConfig             `mapstructure:"search"`
	TTS        TTSConfig                `mapstructure:"tts"`
	STT        STTConfig                `mapstructure:"stt"`
	Logging    LoggingConfig            `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each presentation surface.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ModelConfig selects and configures the language-model backend.
type ModelConfig struct {
	Backend string        `mapstructure:"backend"` // "ollama" or "openai"
	Host    string        `mapstructure:"host"`    // Ollama base URL
	Name    string        `mapstructure:"name"`    // model identifier
	Timeout time.Duration `mapstructure:"timeout"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
}

// OpenAIConfig holds settings for OpenAI-compatible chat endpoints.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// SearchConfig configures search augmentation.
type SearchConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // "duckduckgo"
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"` // e.g. "us-en", "kr-kr"
	MaxResults      int           `mapstructure:"max_results"`
	ImageMaxResults int           `mapstructure:"image_max_results"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	Backend string              `mapstructure:"backend"` // "gtts", "edge" or "piper"
	Voice   message.VoiceParams `mapstructure:"voice"`
	GTTS    GTTSConfig          `mapstructure:"gtts"`
	Edge    EdgeConfig          `mapstructure:"edge"`
	Piper   PiperConfig         `mapstructure:"piper"`
}

// GTTSConfig holds Google Translate TTS settings.
type GTTSConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	TLD      string        `mapstructure:"tld"` // accent host, e.g. "com", "co.uk"
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EdgeConfig holds Microsoft Edge neural TTS settings.
//
// Voices maps "<lang>" or "<lang>-<gender>" (e.g. "en-male") to an Edge voice
// name, overriding the built-in table.
type EdgeConfig struct {
	Voices map[string]string `mapstructure:"voices"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. Endpoints takes precedence.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"` // "<lang>" or "<lang>-<gender>" -> Piper voice
}

// STTConfig selects and configures transcription of spoken questions.
type STTConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend"`  // "whisper" or "openai"
	Endpoint  string        `mapstructure:"endpoint"` // Whisper-compatible URL
	Type      string        `mapstructure:"type"`     // "openai" or "asr" (whisper-asr-webservice)
	Model     string        `mapstructure:"model"`
	VADFilter bool          `mapstructure:"vad_filter"`
	Timeout   time.Duration `mapstructure:"timeout"`
	OpenAI    OpenAIConfig  `mapstructure:"openai"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from a .env file, config file, environment
// variables and defaults. If configFile is non-empty it is used directly;
// otherwise the standard search order applies: ./shouldi.yaml,
// ./configs/shouldi.yaml, /etc/shouldi/shouldi.yaml.
func Load(configFile string) (*Config, error) {
	// Existing environment always wins over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("shouldi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/shouldi")
	}

	// Environment variables: SHOULDI_MODEL_HOST, SHOULDI_TTS_BACKEND, etc.
	v.SetEnvPrefix("SHOULDI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Model.OpenAI.APIKey = resolveEnvRef(cfg.Model.OpenAI.APIKey)
	cfg.STT.OpenAI.APIKey = resolveEnvRef(cfg.STT.OpenAI.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("model.backend", "ollama")
	v.SetDefault("model.host", "http://localhost:11434")
	v.SetDefault("model.name", "llama3.2-vision")
	v.SetDefault("model.timeout", "120s")
	v.SetDefault("model.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("model.openai.base_url", "")
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", 256)
	v.SetDefault("generation.top_p", 0.9)
	v.SetDefault("generation.top_k", 50)
	v.SetDefault("generation.repeat_penalty", 1.1)
	v.SetDefault("language", "en")
	v.SetDefault("search.enabled", true)
	v.SetDefault("search.backend", "duckduckgo")
	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.region", "")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.image_max_results", 2)
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.backend", "gtts")
	v.SetDefault("tts.voice.rate", "normal")
	v.SetDefault("tts.voice.gender", "female")
	v.SetDefault("tts.voice.pitch", 0)
	v.SetDefault("tts.voice.volume", 0)
	v.SetDefault("tts.voice.emotion", "neutral")
	v.SetDefault("tts.voice.quality", 0.7)
	v.SetDefault("tts.gtts.endpoint", "https://translate.google.com/translate_tts")
	v.SetDefault("tts.gtts.tld", "com")
	v.SetDefault("tts.gtts.timeout", "20s")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("stt.enabled", false)
	v.SetDefault("stt.backend", "whisper")
	v.SetDefault("stt.endpoint", "http://localhost:9000/asr")
	v.SetDefault("stt.type", "asr")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("stt.vad_filter", true)
	v.SetDefault("stt.timeout", "60s")
	v.SetDefault("stt.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("stt.openai.base_url", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the generation and voice defaults and backend selections.
func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	switch c.Model.Backend {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}

	if c.Search.Enabled && c.Search.Backend != "duckduckgo" {
		return fmt.Errorf("unknown search backend %q", c.Search.Backend)
	}

	if c.TTS.Enabled {
		switch c.TTS.Backend {
		case "gtts", "edge", "piper":
		default:
			return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
		}
	}
	if err := c.TTS.Voice.Validate(); err != nil {
		return fmt.Errorf("tts.voice: %w", err)
	}

	if c.STT.Enabled {
		switch c.STT.Backend {
		case "openai":
		case "whisper":
			if c.STT.Type != "openai" && c.STT.Type != "asr" {
				return fmt.Errorf("unknown stt.type %q", c.STT.Type)
			}
		default:
			return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
		}
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
