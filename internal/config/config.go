// Package config provides YAML-based configuration loading for CampusConnect.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all CampusConnect environment variables.
const EnvPrefix = "CAMPUS_"

// DefaultWrapUpPrompt is spoken when a candidate exceeds the response cap.
const DefaultWrapUpPrompt = "Thanks for the detailed answer. Please wrap up your current thought in one sentence."

// devJWTSecret signs tokens outside production when no secret is configured.
const devJWTSecret = "campus-dev-secret"

// Config is the top-level CampusConnect configuration, loaded from campus.yaml.
type Config struct {
	Env         string            `yaml:"env"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	AI          AIConfig          `yaml:"ai"`
	Voice       VoiceConfig       `yaml:"voice"`
	TTS         TTSConfig         `yaml:"tts"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	History     HistoryConfig     `yaml:"history"`
	Client      ClientConfig      `yaml:"client"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // mysql or sqlite
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
	Path   string `yaml:"path"` // sqlite file

	Password string `yaml:"-"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	TokenTTL string `yaml:"token_ttl"`

	JWTSecret string `yaml:"-"`
}

// AIConfig selects the interviewer backend. "engine" calls the external AI
// engine over HTTP; "llm" runs the interviewer in-process against Model.
type AIConfig struct {
	Provider  string `yaml:"provider"`
	EngineURL string `yaml:"engine_url"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`

	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
}

// VoiceConfig tunes the turn-taking controller.
type VoiceConfig struct {
	SilenceTimeout  string `yaml:"silence_timeout"`
	MaxUserResponse string `yaml:"max_user_response"`
	RestartDelay    string `yaml:"restart_delay"`
	Recognizer      string `yaml:"recognizer"` // browser or deepgram
	WrapUpPrompt    string `yaml:"wrap_up_prompt"`
	SampleRate      int    `yaml:"sample_rate"`

	DeepgramAPIKey string `yaml:"-"`
}

// TTSConfig configures cloud speech synthesis.
type TTSConfig struct {
	Provider        string `yaml:"provider"`
	ElevenLabsVoice string `yaml:"elevenlabs_voice"`
	ElevenLabsModel string `yaml:"elevenlabs_model"`
	OpenAIVoice     string `yaml:"openai_voice"`
	OpenAIModel     string `yaml:"openai_model"`

	ElevenLabsAPIKey string `yaml:"-"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Schedule    string `yaml:"schedule"`
	SlotTimeout string `yaml:"slot_timeout"`
}

// HistoryConfig points at the local practice history database.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ClientConfig is used by CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL   string `yaml:"base_url"`
	TokenFile string `yaml:"token_file"`
}

// Load reads a YAML config file from path and returns a validated Config.
// An empty path yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnvOverrides()
	cfg.loadSecrets()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TokenTTL returns the parsed auth token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return mustDuration(c.Auth.TokenTTL, 7*24*time.Hour)
}

// SilenceTimeout returns the parsed end-of-turn silence window.
func (c *Config) SilenceTimeout() time.Duration {
	return mustDuration(c.Voice.SilenceTimeout, 6*time.Second)
}

// MaxUserResponse returns the parsed response-length cap.
func (c *Config) MaxUserResponse() time.Duration {
	return mustDuration(c.Voice.MaxUserResponse, 120*time.Second)
}

// RestartDelay returns the parsed recognizer restart delay.
func (c *Config) RestartDelay() time.Duration {
	return mustDuration(c.Voice.RestartDelay, 150*time.Millisecond)
}

// AITimeout returns the parsed per-request interviewer timeout.
func (c *Config) AITimeout() time.Duration {
	return mustDuration(c.AI.Timeout, 60*time.Second)
}

// SlotTimeout returns how long a live call slot survives without a heartbeat.
func (c *Config) SlotTimeout() time.Duration {
	return mustDuration(c.Maintenance.SlotTimeout, 2*time.Minute)
}

// LLMAPIKey returns the secret for the given chat model provider.
func (c *Config) LLMAPIKey(provider string) string {
	switch provider {
	case "openai":
		return c.AI.OpenAIAPIKey
	case "anthropic":
		return c.AI.AnthropicAPIKey
	case "gemini":
		return c.AI.GeminiAPIKey
	}
	return ""
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("ENV", &c.Env)
	num("PORT", &c.Server.Port)
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_HOST", &c.Database.Host)
	num("DB_PORT", &c.Database.Port)
	str("DB_NAME", &c.Database.Name)
	str("DB_USER", &c.Database.User)
	str("DB_PATH", &c.Database.Path)
	str("TOKEN_TTL", &c.Auth.TokenTTL)
	str("AI_PROVIDER", &c.AI.Provider)
	str("AI_ENGINE_URL", &c.AI.EngineURL)
	str("AI_MODEL", &c.AI.Model)
	str("VOICE_RECOGNIZER", &c.Voice.Recognizer)
	str("TTS_PROVIDER", &c.TTS.Provider)
	str("HISTORY_PATH", &c.History.Path)
	str("CLIENT_BASE_URL", &c.Client.BaseURL)
}

func (c *Config) loadSecrets() {
	c.Database.Password = os.Getenv(EnvPrefix + "DB_PASSWORD")
	c.Auth.JWTSecret = os.Getenv(EnvPrefix + "JWT_SECRET")
	c.AI.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	c.AI.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	c.AI.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	c.Voice.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	c.TTS.ElevenLabsAPIKey = os.Getenv(EnvPrefix + "ELEVENLABS_API_KEY")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "campusconnect"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/campus.db"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "168h"
	}
	if c.Auth.JWTSecret == "" && !c.IsProduction() {
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "engine"
	}
	if c.AI.EngineURL == "" {
		c.AI.EngineURL = "http://localhost:8000"
	}
	if c.AI.Model == "" {
		c.AI.Model = "openai/gpt-4o-mini"
	}
	if c.AI.Timeout == "" {
		c.AI.Timeout = "60s"
	}
	if c.Voice.SilenceTimeout == "" {
		c.Voice.SilenceTimeout = "6s"
	}
	if c.Voice.MaxUserResponse == "" {
		c.Voice.MaxUserResponse = "120s"
	}
	if c.Voice.RestartDelay == "" {
		c.Voice.RestartDelay = "150ms"
	}
	if c.Voice.Recognizer == "" {
		c.Voice.Recognizer = "browser"
	}
	if c.Voice.WrapUpPrompt == "" {
		c.Voice.WrapUpPrompt = DefaultWrapUpPrompt
	}
	if c.Voice.SampleRate == 0 {
		c.Voice.SampleRate = 16000
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = "auto"
	}
	if c.TTS.ElevenLabsVoice == "" {
		c.TTS.ElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"
	}
	if c.TTS.ElevenLabsModel == "" {
		c.TTS.ElevenLabsModel = "eleven_flash_v2_5"
	}
	if c.TTS.OpenAIVoice == "" {
		c.TTS.OpenAIVoice = "alloy"
	}
	if c.TTS.OpenAIModel == "" {
		c.TTS.OpenAIModel = "tts-1"
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "@every 15m"
	}
	if c.Maintenance.SlotTimeout == "" {
		c.Maintenance.SlotTimeout = "2m"
	}
	if c.History.Path == "" {
		c.History.Path = "data/practice.db"
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://localhost:%d/api", c.Server.Port)
	}
	if c.Client.TokenFile == "" {
		c.Client.TokenFile = ".campus-token"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Env {
	case "development", "production", "test":
	default:
		errs = append(errs, fmt.Sprintf("env %q must be development, production or test", c.Env))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, EnvPrefix+"JWT_SECRET is required in production")
	}
	switch c.AI.Provider {
	case "engine", "llm":
	default:
		errs = append(errs, fmt.Sprintf("ai.provider %q must be engine or llm", c.AI.Provider))
	}
	if c.AI.Provider == "llm" && !strings.Contains(c.AI.Model, "/") {
		errs = append(errs, fmt.Sprintf("ai.model %q must be provider/model", c.AI.Model))
	}
	switch c.Voice.Recognizer {
	case "browser", "deepgram":
	default:
		errs = append(errs, fmt.Sprintf("voice.recognizer %q must be browser or deepgram", c.Voice.Recognizer))
	}
	switch c.TTS.Provider {
	case "browser", "elevenlabs", "openai", "auto":
	default:
		errs = append(errs, fmt.Sprintf("tts.provider %q must be browser, elevenlabs, openai or auto", c.TTS.Provider))
	}
	durations := map[string]string{
		"auth.token_ttl":           c.Auth.TokenTTL,
		"ai.timeout":               c.AI.Timeout,
		"voice.silence_timeout":    c.Voice.SilenceTimeout,
		"voice.max_user_response":  c.Voice.MaxUserResponse,
		"voice.restart_delay":      c.Voice.RestartDelay,
		"maintenance.slot_timeout": c.Maintenance.SlotTimeout,
	}
	for _, key := range []string{"auth.token_ttl", "ai.timeout", "voice.silence_timeout", "voice.max_user_response", "voice.restart_delay", "maintenance.slot_timeout"} {
		if d, err := time.ParseDuration(durations[key]); err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s %q is not a positive duration", key, durations[key]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
