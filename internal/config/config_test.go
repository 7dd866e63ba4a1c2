package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Server.Addr", cfg.Server.Addr, ":8080"},
		{"Server.ShutdownTimeout", cfg.Server.ShutdownTimeout, 10},
		{"Server.MaxTextLength", cfg.Server.MaxTextLength, 1000},
		{"Cache.Backend", cfg.Cache.Backend, "file"},
		{"Providers.RateBurst", cfg.Providers.RateBurst, 1},
		{"Providers.Timeout", cfg.Providers.Timeout, 60},
		{"Providers.ElevenLabs.ModelID", cfg.Providers.ElevenLabs.ModelID, "eleven_multilingual_v2"},
		{"Providers.Cartesia.ModelID", cfg.Providers.Cartesia.ModelID, "sonic-2"},
		{"Providers.Cartesia.Version", cfg.Providers.Cartesia.Version, "2024-06-10"},
		{"Providers.Gemini.Model", cfg.Providers.Gemini.Model, "gemini-2.5-flash-preview-tts"},
		{"Providers.Tencent.Region", cfg.Providers.Tencent.Region, "ap-guangzhou"},
		{"LLM.Model", cfg.LLM.Model, "gpt-4o"},
		{"Arena.InitialRating", cfg.Arena.InitialRating, 1500.0},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "console"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if !strings.HasSuffix(cfg.Cache.Dir, "audio") {
		t.Errorf("Cache.Dir should default under the data dir, got %q", cfg.Cache.Dir)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Addr: "127.0.0.1:9000", MaxTextLength: 200, PublicURL: "https://cdn.example.com/"},
		Cache:  CacheConfig{Backend: "memory", Dir: "/tmp/x"},
		Arena:  ArenaConfig{InitialRating: 1200},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr should not be overridden: got %s", cfg.Server.Addr)
	}
	if cfg.Server.MaxTextLength != 200 {
		t.Errorf("MaxTextLength should not be overridden: got %d", cfg.Server.MaxTextLength)
	}
	if cfg.Server.PublicURL != "https://cdn.example.com" {
		t.Errorf("PublicURL trailing slash should be trimmed: got %s", cfg.Server.PublicURL)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.Dir != "/tmp/x" {
		t.Errorf("Cache should not be overridden: got %+v", cfg.Cache)
	}
	if cfg.Arena.InitialRating != 1200 {
		t.Errorf("InitialRating should not be overridden: got %v", cfg.Arena.InitialRating)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voicearena.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  shutdown_timeout: 3
database:
  path: /var/lib/voicearena/arena.db
cache:
  backend: memory
  memory_ttl: 30
providers:
  rate_limit: 2.5
  elevenlabs:
    api_key: el-key
admin:
  password: secret
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr: got %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownDuration() != 3*time.Second {
		t.Errorf("ShutdownDuration: got %v", cfg.Server.ShutdownDuration())
	}
	if cfg.Database.Path != "/var/lib/voicearena/arena.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.MemoryTTL != 30 {
		t.Errorf("Cache: got %+v", cfg.Cache)
	}
	if cfg.Providers.RateLimit != 2.5 {
		t.Errorf("Providers.RateLimit: got %v", cfg.Providers.RateLimit)
	}
	if cfg.Providers.ElevenLabs.APIKey != "el-key" {
		t.Errorf("ElevenLabs.APIKey: got %q", cfg.Providers.ElevenLabs.APIKey)
	}
	if cfg.Admin.Password != "secret" {
		t.Errorf("Admin.Password: got %q", cfg.Admin.Password)
	}
	// 未设置的字段应使用默认值
	if cfg.Providers.TimeoutDuration() != 60*time.Second {
		t.Errorf("Providers timeout should default to 60s, got %v", cfg.Providers.TimeoutDuration())
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CARTESIA_KEY", "  secret-from-env  ")

	path := writeConfig(t, `
providers:
  cartesia:
    api_key: "${TEST_CARTESIA_KEY}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Providers.Cartesia.APIKey != "secret-from-env" {
		t.Errorf("Cartesia.APIKey: got %q, want %q", cfg.Providers.Cartesia.APIKey, "secret-from-env")
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, `
cache:
  backend: s3
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported cache backend")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if home == "" {
		t.Skip("no home directory")
	}
	got := expandHome("~/arena/db.sqlite")
	want := filepath.Join(home, "arena", "db.sqlite")
	if got != want {
		t.Errorf("expandHome: got %q, want %q", got, want)
	}
	if expandHome("/abs/path") != "/abs/path" {
		t.Error("absolute paths should be left untouched")
	}
}
