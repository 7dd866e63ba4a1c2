// Package metrics 定义 voicearena 的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voicearena"

// Metrics 汇总缓存、合成与投票相关指标。
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Metrics struct {
	Registry *prometheus.Registry

	cacheLookups      *prometheus.CounterVec
	cacheWriteErrors  prometheus.Counter
	synthesisDuration *prometheus.HistogramVec
	synthesisErrors   *prometheus.CounterVec
	votes             *prometheus.CounterVec
	ratingSkips       prometheus.Counter
}

// New 创建指标并注册到独立的 Registry，避免测试间重复注册冲突。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_lookups_total",
			Help:      "Audio cache lookups partitioned by result (hit, miss, bypass).",
		}, []string{"result"}),
		cacheWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_write_errors_total",
			Help:      "Best-effort audio cache writes that failed and were discarded.",
		}),
		synthesisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Latency of speech synthesis provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		synthesisErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_errors_total",
			Help:      "Failed speech synthesis provider calls.",
		}, []string{"provider"}),
		votes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Recorded comparisons partitioned by outcome.",
		}, []string{"outcome"}),
		ratingSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_updates_skipped_total",
			Help:      "Comparisons recorded without a rating update because a rating was missing.",
		}),
	}
}

// CacheLookup 记录一次缓存查询结果。
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheWriteError 记录一次被丢弃的缓存写入失败。
func (m *Metrics) CacheWriteError() {
	if m == nil {
		return
	}
	m.cacheWriteErrors.Inc()
}

// Synthesis 记录一次合成调用的耗时和结果。
func (m *Metrics) Synthesis(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.synthesisDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		m.synthesisErrors.WithLabelValues(provider).Inc()
	}
}

// Vote 记录一次投票。
func (m *Metrics) Vote(outcome string) {
	if m == nil {
		return
	}
	m.votes.WithLabelValues(outcome).Inc()
}

// RatingSkipped 记录一次被跳过的评分更新。
func (m *Metrics) RatingSkipped() {
	if m == nil {
		return
	}
	m.ratingSkips.Inc()
}
