// Package config handles loading and validating the aidoctor configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the aidoctor daemon and CLI.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transports    TransportsConfig    `mapstructure:"transports"`
	Transcoder    TranscoderConfig    `mapstructure:"transcoder"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Translation   TranslationConfig   `mapstructure:"translation"`
	Reasoning     ReasoningConfig     `mapstructure:"reasoning"`
	TTS           TTSConfig           `mapstructure:"tts"`
	Artifacts     ArtifactsConfig     `mapstructure:"artifacts"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds process-wide serving settings.
type ServerConfig struct {
	HealthPort    int    `mapstructure:"health_port"`
	MaxConcurrent int    `mapstructure:"max_concurrent"` // consultations processed at once; others queue
	ScratchDir    string `mapstructure:"scratch_dir"`    // parent of per-request scratch dirs; "" = os.TempDir()
}

// TransportsConfig holds the configuration for each transport layer.
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
	Enabled     bool  `mapstructure:"enabled"`
	Port        int   `mapstructure:"port"`
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// TranscoderConfig locates the ffmpeg binary.
type TranscoderConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

// TranscriptionConfig configures speech-to-text and language corroboration.
type TranscriptionConfig struct {
	AssemblyAI  AssemblyAIConfig `mapstructure:"assemblyai"`
	Corroborate bool             `mapstructure:"corroborate"`
}

// AssemblyAIConfig holds AssemblyAI API settings.
type AssemblyAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // optional; SDK default when empty
}

// TranslationConfig configures the instruction translator.
type TranslationConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ReasoningConfig configures the OpenAI-compatible vision model.
type ReasoningConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TTSConfig configures the primary and fallback speech engines.
type TTSConfig struct {
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Fallback   string           `mapstructure:"fallback"` // "gtts" or "piper"
	GTTS       GTTSConfig       `mapstructure:"gtts"`
	Piper      PiperConfig      `mapstructure:"piper"`
}

// ElevenLabsConfig holds ElevenLabs API settings. An empty APIKey disables
// the primary engine.
type ElevenLabsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	VoiceID string        `mapstructure:"voice_id"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GTTSConfig configures the Google Translate speech fallback.
type GTTSConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. Endpoints takes precedence.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
}

// ArtifactsConfig controls where produced audio lives and for how long.
type ArtifactsConfig struct {
	Dir string        `mapstructure:"dir"`
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from an optional dotenv file, an optional
// config file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./aidoctor.yaml, ./configs/aidoctor.yaml, /etc/aidoctor/aidoctor.yaml.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.max_concurrent", 4)
	v.SetDefault("server.scratch_dir", "")
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_upload_mb", 25)
	v.SetDefault("transcoder.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcription.corroborate", true)
	v.SetDefault("translation.endpoint", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("translation.timeout", "15s")
	v.SetDefault("reasoning.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("reasoning.model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("reasoning.timeout", "90s")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("tts.elevenlabs.timeout", "60s")
	v.SetDefault("tts.fallback", "gtts")
	v.SetDefault("tts.gtts.endpoint", "https://translate.google.com/translate_tts")
	v.SetDefault("tts.gtts.timeout", "30s")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("artifacts.dir", "./artifacts")
	v.SetDefault("artifacts.ttl", "1h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("aidoctor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/aidoctor")
	}

	// Environment variables: AIDOCTOR_SERVER_HEALTH_PORT, AIDOCTOR_TTS_FALLBACK, etc.
	v.SetEnvPrefix("AIDOCTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The vendors' conventional variable names are accepted for credentials.
	_ = v.BindEnv("transcription.assemblyai.api_key", "AIDOCTOR_TRANSCRIPTION_ASSEMBLYAI_API_KEY", "ASSEMBLYAI_API_KEY")
	_ = v.BindEnv("reasoning.api_key", "AIDOCTOR_REASONING_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("tts.elevenlabs.api_key", "AIDOCTOR_TTS_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("tts.elevenlabs.voice_id", "AIDOCTOR_TTS_ELEVENLABS_VOICE_ID", "ELEVENLABS_VOICE_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

	// Resolve env var references in sensitive fields (e.g., "${ASSEMBLYAI_API_KEY}")
	cfg.Transcription.AssemblyAI.APIKey = resolveEnvRef(cfg.Transcription.AssemblyAI.APIKey)
	cfg.Reasoning.APIKey = resolveEnvRef(cfg.Reasoning.APIKey)
	cfg.TTS.ElevenLabs.APIKey = resolveEnvRef(cfg.TTS.ElevenLabs.APIKey)
	cfg.TTS.ElevenLabs.VoiceID = resolveEnvRef(cfg.TTS.ElevenLabs.VoiceID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot run with. Missing
// credentials are not errors here: each stage reports them when it is used.
func (c *Config) Validate() error {
	if c.Server.HealthPort <= 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("invalid server.health_port %d", c.Server.HealthPort)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("server.max_concurrent must be positive, got %d", c.Server.MaxConcurrent)
	}
	if c.Transports.HTTP.Enabled && (c.Transports.HTTP.Port <= 0 || c.Transports.HTTP.Port > 65535) {
		return fmt.Errorf("invalid transports.http.port %d", c.Transports.HTTP.Port)
	}
	if c.Transports.GRPC.Enabled && (c.Transports.GRPC.Port <= 0 || c.Transports.GRPC.Port > 65535) {
		return fmt.Errorf("invalid transports.grpc.port %d", c.Transports.GRPC.Port)
	}
	if c.Transcoder.FFmpegPath == "" {
		return errors.New("transcoder.ffmpeg_path must not be empty")
	}
	switch c.TTS.Fallback {
	case "gtts", "piper":
	default:
		return fmt.Errorf("unknown tts.fallback %q (want gtts or piper)", c.TTS.Fallback)
	}
	if c.Artifacts.Dir == "" {
		return errors.New("artifacts.dir must not be empty")
	}
	if c.Artifacts.TTL <= 0 {
		return fmt.Errorf("artifacts.ttl must be positive, got %s", c.Artifacts.TTL)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
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
