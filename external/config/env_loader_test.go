package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setCoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SCRIBE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("WHISPER_API_KEY", "sk-whisper")
	t.Setenv("GENERATOR_API_KEY", "api-key")
	t.Setenv("GENERATOR_PROJECT_ID", "project-id")
}

func TestLoadCore_AppliesDefaults(t *testing.T) {
	setCoreEnv(t)

	cfg, err := LoadCore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TranscriberBackend != "whisper" || cfg.GeneratorBackend != "watsonx" {
		t.Fatalf("unexpected backends: %s / %s", cfg.TranscriberBackend, cfg.GeneratorBackend)
	}
	if cfg.GeneratorModelID != "ibm/granite-13b-instruct-v2" {
		t.Fatalf("unexpected model: %s", cfg.GeneratorModelID)
	}
	if cfg.GeneratorMaxNewTokens != 512 || cfg.GeneratorMinNewTokens != 1 {
		t.Fatalf("unexpected token bounds: %d..%d", cfg.GeneratorMinNewTokens, cfg.GeneratorMaxNewTokens)
	}
	if cfg.GeneratorRepetitionPenalty != 1.05 {
		t.Fatalf("unexpected repetition penalty: %v", cfg.GeneratorRepetitionPenalty)
	}
	if cfg.MaxTranscriptChars != 28000 {
		t.Fatalf("unexpected transcript limit: %d", cfg.MaxTranscriptChars)
	}
}

func TestLoad_RequiresDiscord(t *testing.T) {
	setCoreEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without discord settings")
	}

	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "guild")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCore_MissingAPIKey(t *testing.T) {
	setCoreEnv(t)
	t.Setenv("GENERATOR_API_KEY", "")
	os.Unsetenv("GENERATOR_API_KEY")

	if _, err := LoadCore(); err == nil {
		t.Fatal("expected error for missing GENERATOR_API_KEY")
	}
}

func TestLoadCore_ReadsDotEnvFile(t *testing.T) {
	setCoreEnv(t)
	path := filepath.Join(t.TempDir(), "scribe.env")
	if err := os.WriteFile(path, []byte("GENERATOR_MODEL_ID=ibm/granite-3-8b-instruct\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("SCRIBE_ENV_FILE", path)
	t.Setenv("GENERATOR_MODEL_ID", "")
	os.Unsetenv("GENERATOR_MODEL_ID")
	t.Cleanup(func() { os.Unsetenv("GENERATOR_MODEL_ID") })

	cfg, err := LoadCore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeneratorModelID != "ibm/granite-3-8b-instruct" {
		t.Fatalf("expected model from env file, got %s", cfg.GeneratorModelID)
	}
}
