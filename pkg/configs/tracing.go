package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTracingExporter     = "otlp-http"
	DefaultTracingEndpoint     = "http://localhost:4318"
	DefaultTracingBatchTimeout = 5 * time.Second
	DefaultMaxBatchSize        = 512
	DefaultMaxQueueSize        = 2048
)

// TracingConfig OpenTelemetry 追踪.
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	// ExporterType otlp-http、otlp-grpc 或 zipkin
	ExporterType string `mapstructure:"exporter_type" rule:"omitempty,oneof=otlp-http otlp-grpc zipkin"`
	Endpoint     string `mapstructure:"endpoint"`
	// SampleRate 根 span 的采样率，下游沿用上游的采样决定
	SampleRate   float64       `mapstructure:"sample_rate"    rule:"min=0,max=1"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxBatchSize int           `mapstructure:"max_batch_size" rule:"min=0"`
	MaxQueueSize int           `mapstructure:"max_queue_size" rule:"min=0"`
	// ResourceLabels 附加到每个 span 的资源属性，如 deployment.environment
	ResourceLabels map[string]string `mapstructure:"resource_labels"`
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", AppName)
	v.SetDefault("tracing.service_version", AppVersion)
	v.SetDefault("tracing.exporter_type", DefaultTracingExporter)
	v.SetDefault("tracing.endpoint", DefaultTracingEndpoint)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", DefaultTracingBatchTimeout)
	v.SetDefault("tracing.max_batch_size", DefaultMaxBatchSize)
	v.SetDefault("tracing.max_queue_size", DefaultMaxQueueSize)
	v.SetDefault("tracing.resource_labels", map[string]string{})
}
