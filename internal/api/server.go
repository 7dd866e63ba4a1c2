// Package api 提供 voicearena 的 HTTP 接口（echo）。
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iabetor/voicearena/internal/arena"
	"github.com/iabetor/voicearena/internal/audio"
	"github.com/iabetor/voicearena/internal/llm"
	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/metrics"
	"github.com/iabetor/voicearena/internal/rss"
	"github.com/iabetor/voicearena/internal/store"
	"github.com/iabetor/voicearena/internal/tts"
)

// DefaultMaxTextLength 单次合成请求允许的最大字符数。
const DefaultMaxTextLength = 1000

// Options 组装 Server 所需的依赖。
type Options struct {
	Store    *store.Store
	Registry *tts.Registry
	Cache    *audio.Cache
	Selector *arena.Selector
	Recorder *arena.Recorder
	// Generator 为 nil 时脚本生成接口返回 503。
	Generator *llm.Generator
	Importer  *rss.Importer
	// Translator 为 nil 时脚本翻译接口返回 503。
	Translator Translator
	Metrics    *metrics.Metrics

	// AdminPassword 为空时管理接口不做认证。
	AdminPassword string
	MaxTextLength int
}

// Server 持有 echo 实例和各处理器依赖。
type Server struct {
	echo       *echo.Echo
	store      *store.Store
	registry   *tts.Registry
	cache      *audio.Cache
	selector   *arena.Selector
	recorder   *arena.Recorder
	generator  *llm.Generator
	importer   *rss.Importer
	translator Translator
	metrics    *metrics.Metrics
	maxText    int
}

// Translator 把文本译为目标语言，source 为空表示自动检测。
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// New 创建 Server 并注册全部路由。
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:       e,
		store:      opts.Store,
		registry:   opts.Registry,
		cache:      opts.Cache,
		selector:   opts.Selector,
		recorder:   opts.Recorder,
		generator:  opts.Generator,
		importer:   opts.Importer,
		translator: opts.Translator,
		metrics:    opts.Metrics,
		maxText:    opts.MaxTextLength,
	}
	if s.selector == nil {
		s.selector = arena.NewSelector(nil)
	}
	if s.recorder == nil {
		s.recorder = arena.NewRecorder(opts.Store, opts.Metrics)
	}
	if s.importer == nil {
		s.importer = rss.NewImporter(nil, s.maxTextLength())
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())

	s.routes(adminAuth(opts.AdminPassword))
	return s
}

func (s *Server) routes(admin echo.MiddlewareFunc) {
	e := s.echo

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
	e.GET("/audio/*", s.serveAudio)

	api := e.Group("/api")
	api.GET("/matchup", s.getMatchup)
	api.POST("/comparisons", s.createComparison)
	api.POST("/tts", s.synthesize)
	api.GET("/leaderboard", s.getLeaderboard)
	api.GET("/voices", s.listVoices)
	api.GET("/voices/:id", s.getVoice)
	api.GET("/scripts", s.listScripts)

	adm := api.Group("", admin)
	adm.POST("/voices", s.createVoice)
	adm.POST("/voices/import", s.importVoice)
	adm.PATCH("/voices/:id", s.updateVoice)
	adm.DELETE("/voices/:id", s.deleteVoice)
	adm.GET("/providers", s.listProviders)
	adm.GET("/providers/:provider/voices", s.listProviderVoices)
	adm.GET("/providers/:provider/voices/:id", s.getProviderVoice)
	adm.POST("/scripts", s.createScript)
	adm.POST("/scripts/generate", s.generateScript)
	adm.POST("/scripts/import-feed", s.importFeed)
	adm.POST("/scripts/:id/translate", s.translateScript)
	adm.DELETE("/scripts/:id", s.deleteScript)
}

// Handler 返回 http.Handler，便于测试和嵌入。
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start 监听 addr 并阻塞，直到服务被关闭。
func (s *Server) Start(addr string) error {
	logger.Infof("[api] HTTP 服务监听 %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭，等待进行中的请求完成。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) maxTextLength() int {
	if s.maxText > 0 {
		return s.maxText
	}
	return DefaultMaxTextLength
}
