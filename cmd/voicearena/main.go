package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iabetor/voicearena/internal/api"
	"github.com/iabetor/voicearena/internal/arena"
	"github.com/iabetor/voicearena/internal/audio"
	"github.com/iabetor/voicearena/internal/config"
	"github.com/iabetor/voicearena/internal/database"
	"github.com/iabetor/voicearena/internal/llm"
	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/metrics"
	"github.com/iabetor/voicearena/internal/rss"
	"github.com/iabetor/voicearena/internal/store"
	"github.com/iabetor/voicearena/internal/translate"
	"github.com/iabetor/voicearena/internal/tts"
)

func main() {
	configPath := flag.String("config", "configs/voicearena.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Errorf("[main] %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger.Infof("[main] VoiceArena 启动中 (log_level=%s)", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	m := metrics.New()
	st := store.New(db, cfg.Arena.InitialRating)

	registry, err := buildRegistry(ctx, cfg, m)
	if err != nil {
		return err
	}
	if len(registry.Names()) == 0 {
		logger.Warnf("[main] 没有可用的语音服务商，合成请求将失败")
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		return err
	}

	var generator *llm.Generator
	if cfg.LLM.APIKey != "" {
		generator, err = llm.NewGenerator(llm.Config{
			APIURL: cfg.LLM.APIURL,
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
		if err != nil {
			return fmt.Errorf("创建脚本生成器失败: %w", err)
		}
	} else {
		logger.Info("[main] 未配置 llm.api_key，脚本生成不可用")
	}

	var translator api.Translator
	if tc := cfg.Providers.Tencent; tc.SecretID != "" && tc.SecretKey != "" {
		tr, err := translate.NewTencent(tc.SecretID, tc.SecretKey, tc.Region)
		if err != nil {
			return err
		}
		translator = tr
	}

	srv := api.New(api.Options{
		Store:         st,
		Registry:      registry,
		Cache:         audio.NewCache(blobs, m),
		Selector:      arena.NewSelector(nil),
		Recorder:      arena.NewRecorder(st, m),
		Generator:     generator,
		Importer:      rss.NewImporter(nil, cfg.Server.MaxTextLength),
		Translator:    translator,
		Metrics:       m,
		AdminPassword: cfg.Admin.Password,
		MaxTextLength: cfg.Server.MaxTextLength,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("[main] 收到退出信号，正在关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
	}
	logger.Info("[main] VoiceArena 已停止")
	return nil
}

// buildRegistry 注册所有已配置的语音服务商。缺少密钥的服务商被跳过。
func buildRegistry(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*tts.Registry, error) {
	p := cfg.Providers
	registry := tts.NewRegistry(tts.RegistryOptions{
		RatePerSecond: p.RateLimit,
		Burst:         p.RateBurst,
		Timeout:       p.TimeoutDuration(),
		Metrics:       m,
	})

	if p.ElevenLabs.APIKey != "" {
		el, err := tts.NewElevenLabs(tts.ElevenLabsConfig{
			APIKey:  p.ElevenLabs.APIKey,
			BaseURL: p.ElevenLabs.BaseURL,
			ModelID: p.ElevenLabs.ModelID,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(tts.ProviderElevenLabs, el)
	}
	if p.Cartesia.APIKey != "" {
		ca, err := tts.NewCartesia(tts.CartesiaConfig{
			APIKey:  p.Cartesia.APIKey,
			BaseURL: p.Cartesia.BaseURL,
			ModelID: p.Cartesia.ModelID,
			Version: p.Cartesia.Version,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(tts.ProviderCartesia, ca)
	}
	if p.Gemini.APIKey != "" {
		gm, err := tts.NewGemini(ctx, tts.GeminiConfig{
			APIKey: p.Gemini.APIKey,
			Model:  p.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(tts.ProviderGemini, gm)
	}
	if p.Edge.Enabled {
		registry.Register(tts.ProviderEdge, tts.NewEdge())
	}
	if p.Tencent.SecretID != "" && p.Tencent.SecretKey != "" {
		tc, err := tts.NewTencent(tts.TencentConfig{
			SecretID:  p.Tencent.SecretID,
			SecretKey: p.Tencent.SecretKey,
			Region:    p.Tencent.Region,
			Speed:     p.Tencent.Speed,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(tts.ProviderTencent, tc)
	}

	logger.Infof("[main] 已启用语音服务商: %v", registry.Names())
	return registry, nil
}

func buildBlobStore(cfg *config.Config) (audio.BlobStore, error) {
	baseURL := cfg.Server.PublicURL + "/audio"
	switch cfg.Cache.Backend {
	case "memory":
		logger.Info("[main] 使用内存音频缓存")
		return audio.NewMemoryStore(baseURL, time.Duration(cfg.Cache.MemoryTTL)*time.Minute), nil
	default:
		fs, err := audio.NewFileStore(cfg.Cache.Dir, baseURL)
		if err != nil {
			return nil, fmt.Errorf("初始化音频缓存失败: %w", err)
		}
		logger.Infof("[main] 音频缓存目录: %s", fs.Dir())
		return fs, nil
	}
}
