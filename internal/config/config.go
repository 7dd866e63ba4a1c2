package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 voicearena 的顶层配置结构。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	LLM       LLMConfig       `yaml:"llm"`
	Admin     AdminConfig     `yaml:"admin"`
	Arena     ArenaConfig     `yaml:"arena"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	PublicURL       string `yaml:"public_url"` // 缓存音频对外地址前缀，为空则使用相对路径
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // 秒
	MaxTextLength   int    `yaml:"max_text_length"`
}

// DatabaseConfig SQLite 配置。
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig 合成音频缓存配置。
type CacheConfig struct {
	// Backend 可选 file 或 memory。
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	// MemoryTTL 内存缓存条目过期时间（分钟），0 表示永不过期。
	MemoryTTL int `yaml:"memory_ttl"`
}

// ProvidersConfig 各语音合成服务配置。
type ProvidersConfig struct {
	// RateLimit 每个服务每秒允许的合成请求数，0 表示不限速。
	RateLimit  float64          `yaml:"rate_limit"`
	RateBurst  int              `yaml:"rate_burst"`
	Timeout    int              `yaml:"timeout"` // 秒
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Cartesia   CartesiaConfig   `yaml:"cartesia"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Edge       EdgeConfig       `yaml:"edge"`
	Tencent    TencentConfig    `yaml:"tencent"`
}

// ElevenLabsConfig ElevenLabs 配置。
type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	ModelID string `yaml:"model_id"`
}

// CartesiaConfig Cartesia 配置。
type CartesiaConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	ModelID string `yaml:"model_id"`
	Version string `yaml:"version"`
}

// GeminiConfig Gemini TTS 配置。
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// LLMConfig 脚本生成所用大模型配置。
type LLMConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AdminConfig 管理接口配置。
type AdminConfig struct {
	// Password 为空时管理接口不做认证（开发模式）。
	Password string `yaml:"password"`
}

// ArenaConfig 评分配置。
type ArenaConfig struct {
	InitialRating float64 `yaml:"initial_rating"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${ELEVENLABS_API_KEY}
	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查相互冲突或无效的配置项。
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "file", "memory":
	default:
		return fmt.Errorf("不支持的缓存后端: %s", c.Cache.Backend)
	}
	if c.Server.MaxTextLength < 0 {
		return fmt.Errorf("server.max_text_length 不能为负数")
	}
	if c.Providers.RateLimit < 0 {
		return fmt.Errorf("providers.rate_limit 不能为负数")
	}
	return nil
}

// ShutdownDuration 返回优雅关闭超时。
func (s ServerConfig) ShutdownDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// TimeoutDuration 返回合成请求超时。
func (p ProvidersConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}
	if cfg.Server.MaxTextLength == 0 {
		cfg.Server.MaxTextLength = 1000
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	cfg.Database.Path = expandHome(cfg.Database.Path)

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(dataDir(), "audio")
	} else {
		cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	}

	if cfg.Providers.RateBurst == 0 {
		cfg.Providers.RateBurst = 1
	}
	if cfg.Providers.Timeout == 0 {
		cfg.Providers.Timeout = 60
	}
	if cfg.Providers.ElevenLabs.BaseURL == "" {
		cfg.Providers.ElevenLabs.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.Providers.ElevenLabs.ModelID == "" {
		cfg.Providers.ElevenLabs.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Providers.Cartesia.BaseURL == "" {
		cfg.Providers.Cartesia.BaseURL = "https://api.cartesia.ai"
	}
	if cfg.Providers.Cartesia.ModelID == "" {
		cfg.Providers.Cartesia.ModelID = "sonic-2"
	}
	if cfg.Providers.Cartesia.Version == "" {
		cfg.Providers.Cartesia.Version = "2024-06-10"
	}
	if cfg.Providers.Gemini.Model == "" {
		cfg.Providers.Gemini.Model = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Providers.Tencent.Region == "" {
		cfg.Providers.Tencent.Region = "ap-guangzhou"
	}
	if cfg.Providers.Tencent.Speed == 0 {
		cfg.Providers.Tencent.Speed = 1.0
	}

	if cfg.LLM.APIURL == "" {
		cfg.LLM.APIURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}

	if cfg.Arena.InitialRating == 0 {
		cfg.Arena.InitialRating = 1500.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.Providers.ElevenLabs.APIKey = strings.TrimSpace(cfg.Providers.ElevenLabs.APIKey)
	cfg.Providers.Cartesia.APIKey = strings.TrimSpace(cfg.Providers.Cartesia.APIKey)
	cfg.Providers.Gemini.APIKey = strings.TrimSpace(cfg.Providers.Gemini.APIKey)
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.Admin.Password = strings.TrimSpace(cfg.Admin.Password)
}

// dataDir 返回默认数据目录 ~/.voicearena。
func dataDir() string {
	home, _ := os.UserHomeDir()
	if home != "" {
		return filepath.Join(home, ".voicearena")
	}
	return "./.voicearena-data"
}

// expandHome 展开路径开头的 ~/，Go 不会自动处理。
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return p
	}
	return filepath.Join(home, p[2:])
}
