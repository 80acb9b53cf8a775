package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
env: production
server:
  port: 8080
  allowed_origins: ["https://campus.example.com", "https://www.campus.example.com"]
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: campus_prod
  user: campus
auth:
  token_ttl: 24h
ai:
  provider: llm
  model: anthropic/claude-3-5-haiku-latest
  timeout: 30s
voice:
  silence_timeout: 4s
  max_user_response: 90s
  restart_delay: 200ms
  recognizer: deepgram
  wrap_up_prompt: "Please finish up."
tts:
  provider: elevenlabs
maintenance:
  schedule: "*/5 * * * *"
`

// clearEnv isolates a test from CAMPUS_* variables set in the environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) {
			key, _, _ := strings.Cut(kv, "=")
			t.Setenv(key, "")
		}
	}
}

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"JWT_SECRET", "s3cret")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.IsProduction() {
		t.Errorf("IsProduction() = false, want true")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins len = %d, want 2", len(cfg.Server.AllowedOrigins))
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "mysql")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if cfg.TokenTTL() != 24*time.Hour {
		t.Errorf("TokenTTL() = %v, want 24h", cfg.TokenTTL())
	}
	if cfg.AI.Provider != "llm" {
		t.Errorf("AI.Provider = %q, want %q", cfg.AI.Provider, "llm")
	}
	if cfg.SilenceTimeout() != 4*time.Second {
		t.Errorf("SilenceTimeout() = %v, want 4s", cfg.SilenceTimeout())
	}
	if cfg.MaxUserResponse() != 90*time.Second {
		t.Errorf("MaxUserResponse() = %v, want 90s", cfg.MaxUserResponse())
	}
	if cfg.RestartDelay() != 200*time.Millisecond {
		t.Errorf("RestartDelay() = %v, want 200ms", cfg.RestartDelay())
	}
	if cfg.Voice.WrapUpPrompt != "Please finish up." {
		t.Errorf("WrapUpPrompt = %q, want %q", cfg.Voice.WrapUpPrompt, "Please finish up.")
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "s3cret")
	}
}

func TestParse_Empty_AppliesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.TokenTTL() != 7*24*time.Hour {
		t.Errorf("TokenTTL() = %v, want 168h", cfg.TokenTTL())
	}
	if cfg.SilenceTimeout() != 6*time.Second {
		t.Errorf("SilenceTimeout() = %v, want 6s", cfg.SilenceTimeout())
	}
	if cfg.MaxUserResponse() != 120*time.Second {
		t.Errorf("MaxUserResponse() = %v, want 120s", cfg.MaxUserResponse())
	}
	if cfg.RestartDelay() != 150*time.Millisecond {
		t.Errorf("RestartDelay() = %v, want 150ms", cfg.RestartDelay())
	}
	if cfg.Voice.WrapUpPrompt != DefaultWrapUpPrompt {
		t.Errorf("WrapUpPrompt = %q, want default", cfg.Voice.WrapUpPrompt)
	}
	if cfg.TTS.Provider != "auto" {
		t.Errorf("TTS.Provider = %q, want %q", cfg.TTS.Provider, "auto")
	}
	if cfg.TTS.ElevenLabsVoice != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("ElevenLabsVoice = %q", cfg.TTS.ElevenLabsVoice)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("development JWTSecret should default to a dev secret")
	}
	if cfg.Client.BaseURL != "http://localhost:5000/api" {
		t.Errorf("Client.BaseURL = %q", cfg.Client.BaseURL)
	}
}

func TestParse_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("env: production\n"))
	if err == nil {
		t.Fatal("expected error for missing JWT secret in production")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error %q should mention JWT_SECRET", err)
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	clearEnv(t)

	yaml := `
env: staging
database:
  driver: postgres
voice:
  recognizer: whisper
  silence_timeout: soon
tts:
  provider: polly
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"env", "database.driver", "voice.recognizer", "voice.silence_timeout", "tts.provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if !strings.HasPrefix(err.Error(), "config: validation failed: ") {
		t.Errorf("error prefix = %q", err)
	}
}

func TestParse_LLMModelFormat(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("ai:\n  provider: llm\n  model: gpt-4o\n"))
	if err == nil || !strings.Contains(err.Error(), "ai.model") {
		t.Errorf("err = %v, want ai.model validation error", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte("server: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"PORT", "9090")
	t.Setenv(EnvPrefix+"DB_DRIVER", "mysql")
	t.Setenv(EnvPrefix+"ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv(EnvPrefix+"TTS_PROVIDER", "browser")
	t.Setenv(EnvPrefix+"ELEVENLABS_API_KEY", "el-key")
	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "oa-key")

	cfg, err := Parse([]byte("server:\n  port: 7000\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if got := strings.Join(cfg.Server.AllowedOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("AllowedOrigins = %q", got)
	}
	if cfg.TTS.Provider != "browser" {
		t.Errorf("TTS.Provider = %q, want browser", cfg.TTS.Provider)
	}
	if cfg.TTS.ElevenLabsAPIKey != "el-key" {
		t.Errorf("ElevenLabsAPIKey = %q", cfg.TTS.ElevenLabsAPIKey)
	}
	if cfg.LLMAPIKey("openai") != "oa-key" {
		t.Errorf("LLMAPIKey(openai) = %q", cfg.LLMAPIKey("openai"))
	}
	if cfg.LLMAPIKey("unknown") != "" {
		t.Errorf("LLMAPIKey(unknown) should be empty")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 6000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/campus.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CAMPUS_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMPUS_TEST_DOTENV", "")
	os.Unsetenv("CAMPUS_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CAMPUS_TEST_DOTENV"); got != "loaded" {
		t.Errorf("CAMPUS_TEST_DOTENV = %q, want loaded", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadDotEnv(missing) = %v, want nil", err)
	}
}
