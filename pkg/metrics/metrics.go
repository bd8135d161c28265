// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、下载、结构校验与编辑锁相关指标.
//
// Example:
//
//	if err := metrics.InitMetrics(config.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.FilesServed.WithLabelValues("200").Inc()
//	metrics.ValidatorFindings.WithLabelValues("4").Inc()
package metrics

import (
	"errors"
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/docvault/pkg/configs"
)

const namespace = "docvault"

// 全局指标变量.未启用时照常计数，只是不注册、不暴露.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// FilesServed 附件下载次数，按响应状态码区分.
	FilesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_served_total",
			Help:      "Attachment download attempts by response status",
		},
		[]string{"status"},
	)

	// ServedBytes 下载写出的字节数（压缩后）.
	ServedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "served_bytes_total",
			Help:      "Bytes written by attachment downloads",
		},
	)

	// ValidatorFindings 结构校验发现的问题，按代码区分.
	ValidatorFindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validator_findings_total",
			Help:      "Structure validator findings by code",
		},
		[]string{"code"},
	)

	// ValidatorFixes 已应用的修复，按代码区分.
	ValidatorFixes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validator_fixes_total",
			Help:      "Structure fixes applied by code",
		},
		[]string{"code"},
	)

	// LockOverrides 编辑锁被接管次数.
	LockOverrides = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_overrides_total",
			Help:      "Edit lock overrides",
		},
	)

	// SchedulerJobRuns 定时任务运行次数，按任务与结果区分.
	SchedulerJobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	// SchedulerJobDuration 定时任务运行耗时.
	SchedulerJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_job_duration_seconds",
			Help:      "Scheduled job run duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"job"},
	)

	// RateLimited 被限流拒绝的请求，scope 为 api 或 download.
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// BreakerState 熔断器状态：0 关闭，1 半开，2 打开.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per route group (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)

	// registry Prometheus注册表.
	registry     = prometheus.NewRegistry()
	registerOnce sync.Once
)

// registerer 带 ConstLabels 包装的注册入口.
var registerer prometheus.Registerer = registry

// InitMetrics 注册全部指标，ConstLabels 附加到每一个指标上.未启用时什么也不做.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		if len(config.ConstLabels) > 0 {
			registerer = prometheus.WrapRegistererWith(config.ConstLabels, registry)
		}

		if config.RuntimeMetrics {
			registerer.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registerer.MustRegister(
			RequestCounter, RequestDuration,
			FilesServed, ServedBytes,
			ValidatorFindings, ValidatorFixes,
			LockOverrides,
			SchedulerJobRuns, SchedulerJobDuration,
			RateLimited, BreakerState,
		)
	})

	return nil
}

// Register 注册其他包自带的采集器（如 GORM 连接池），已注册过的忽略.
func Register(cs ...prometheus.Collector) error {
	var result *multierror.Error

	for _, c := range cs {
		err := registerer.Register(c)

		var dup prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &dup) {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// StartMetricsServer 在引擎上挂载指标路径，按配置挂载 pprof.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry:          registry,
		EnableOpenMetrics: true,
	})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// Registerer 供外部库（watermill 等）注册自带指标，带 ConstLabels.
func Registerer() prometheus.Registerer {
	return registerer
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
