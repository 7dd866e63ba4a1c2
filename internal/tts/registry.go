package tts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/metrics"
)

const tracerName = "github.com/iabetor/voicearena/internal/tts"

// DefaultContentType 未实现 ContentTyper 的服务商默认返回 MP3。
const DefaultContentType = "audio/mpeg"

type registered struct {
	provider Provider
	limiter  *rate.Limiter
}

// Registry 按名称管理服务商。每个服务商有独立的令牌桶限流，
// 每次合成都会记录 otel span 和 Prometheus 指标。
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registered
	limit     rate.Limit
	burst     int
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// RegistryOptions Registry 配置。
type RegistryOptions struct {
	// RatePerSecond 每个服务商每秒请求数，0 表示不限速。
	RatePerSecond float64
	Burst         int
	// Timeout 单次合成超时，0 表示不设置。
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// NewRegistry 创建空的 Registry。
func NewRegistry(opts RegistryOptions) *Registry {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Registry{
		providers: make(map[string]*registered),
		limit:     limit,
		burst:     burst,
		timeout:   opts.Timeout,
		metrics:   opts.Metrics,
	}
}

// Register 注册服务商，同名覆盖。
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &registered{provider: p, limiter: rate.NewLimiter(r.limit, r.burst)}
	logger.Infof("[tts] 已注册服务商: %s", name)
}

// Names 返回已注册的服务商名称。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has 判断服务商是否已注册。
func (r *Registry) Has(name string) bool {
	_, err := r.get(name)
	return err == nil
}

func (r *Registry) get(name string) (*registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownProvider)
	}
	return reg, nil
}

// ContentType 返回服务商输出的音频类型。
func (r *Registry) ContentType(name string) string {
	reg, err := r.get(name)
	if err != nil {
		return DefaultContentType
	}
	if ct, ok := reg.provider.(ContentTyper); ok {
		return ct.ContentType()
	}
	return DefaultContentType
}

// Lister 返回服务商的语音目录。
func (r *Registry) Lister(name string) (VoiceLister, error) {
	reg, err := r.get(name)
	if err != nil {
		return nil, err
	}
	l, ok := reg.provider.(VoiceLister)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrListUnsupported)
	}
	return l, nil
}

// Synthesize 通过指定服务商合成文本，返回音频和内容类型。
// 调用前等待限流令牌；失败不自动重试。
func (r *Registry) Synthesize(ctx context.Context, provider, voiceID, text string) ([]byte, string, error) {
	reg, err := r.get(provider)
	if err != nil {
		return nil, "", err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "tts.Synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.provider", provider),
		attribute.String("tts.voice_id", voiceID),
		attribute.Int("tts.text_length", len([]rune(text))),
	)

	if err := reg.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter")
		return nil, "", &ProviderError{Provider: provider, Message: "等待限流失败", Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := reg.provider.Synthesize(ctx, voiceID, text)
	elapsed := time.Since(start)
	r.metrics.Synthesis(provider, elapsed, err)

	if err != nil {
		err = providerErr(provider, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		logger.Warnf("[tts] %s 合成失败 (语音=%s, 耗时 %v): %v", provider, voiceID, elapsed, err)
		return nil, "", err
	}
	span.SetAttributes(attribute.Int("tts.audio_bytes", len(data)))
	logger.Infof("[tts] %s 合成完成 (语音=%s, %d 字节, 耗时 %v)", provider, voiceID, len(data), elapsed.Round(time.Millisecond))
	return data, r.ContentType(provider), nil
}
