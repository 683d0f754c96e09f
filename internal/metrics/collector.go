// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	registry *prometheus.Registry

	// 图片获取指标
	resolutionsTotal       *prometheus.CounterVec
	candidateFailuresTotal *prometheus.CounterVec

	// 生成指标
	attemptsTotal      *prometheus.CounterVec
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	// 分发指标
	dispatchTotal *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时使用独立 Registry，
// 可通过 Handler 暴露。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}
	if reg == nil {
		c.registry = prometheus.NewRegistry()
		reg = c.registry
	}
	factory := promauto.With(reg)

	c.resolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_resolutions_total",
			Help:      "Total number of image resolutions by origin",
		},
		[]string{"origin"},
	)

	c.candidateFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_candidate_failures_total",
			Help:      "Total number of skipped image candidates by stage",
		},
		[]string{"stage"},
	)

	c.attemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Total number of generation attempts by credential slot and result",
		},
		[]string{"key_index", "result"},
	)

	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of generation calls by outcome",
		},
		[]string{"status"},
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	c.dispatchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Total number of matched commands by status",
		},
		[]string{"command", "status"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// Handler 返回独立 Registry 的 HTTP 处理器；使用外部 Registerer 时返回默认处理器。
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordResolution 记录一次图片解析结果，origin 为空表示未找到
func (c *Collector) RecordResolution(origin string) {
	if c == nil {
		return
	}
	if origin == "" {
		origin = "none"
	}
	c.resolutionsTotal.WithLabelValues(origin).Inc()
}

// RecordCandidateFailure 记录一次被跳过的候选图片
func (c *Collector) RecordCandidateFailure(stage string) {
	if c == nil {
		return
	}
	c.candidateFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordAttempt 记录一次生成尝试
func (c *Collector) RecordAttempt(keyIndex int, success bool) {
	if c == nil {
		return
	}
	c.attemptsTotal.WithLabelValues(itoa(keyIndex), result(success)).Inc()
}

// RecordGeneration 记录一次生成调用的最终结果
func (c *Collector) RecordGeneration(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.generationsTotal.WithLabelValues(status).Inc()
	c.generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordDispatch 记录一次指令分发
func (c *Collector) RecordDispatch(command, status string) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(command, status).Inc()
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func itoa(i int) string {
	if i >= 0 && i < len(smallInts) {
		return smallInts[i]
	}
	return "other"
}

// 限制 key_index 标签基数
var smallInts = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}
