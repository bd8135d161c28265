package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
	MQTypeMemory MQType = "memory" // 进程内 gochannel，单实例部署与测试使用

	DefaultMQURL         = "localhost:4222"
	DefaultMQClientID    = "docvault"
	DefaultMaxReconnects = 5
	DefaultReconnectWait = 5  // 秒
	DefaultPingInterval  = 20 // 秒
	DefaultMaxPingsOut   = 3
	DefaultBufferSize    = 32768

	// 所有事件主题都以 dv. 开头，写入同一个流.
	DefaultStreamName     = "DOCVAULT"
	DefaultStreamSubject  = "dv.>"
	DefaultStreamMaxMsgs  = 1000000
	DefaultStreamMaxBytes = 1024 * 1024 * 1024
	DefaultStreamMaxAge   = 72 // 小时，覆盖周末无人处理的通知
	DefaultStreamReplicas = 1

	DefaultConsumerAckWait       = 30 // 秒
	DefaultConsumerMaxDeliver    = 5
	DefaultConsumerMaxAckPending = 1000
)

// MQConfig 事件队列.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=nats redis memory"`
	Common MQCommonConfig `mapstructure:"common"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 连接参数.
type MQCommonConfig struct {
	URL           string `mapstructure:"url"            rule:"hostname_port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	MaxReconnects int    `mapstructure:"max_reconnects" rule:"min=-1,max=100"` // -1 表示无限重连
	ReconnectWait int    `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	// StrictConnect 启动时连不上即失败；否则后台重试，期间发布的事件进入重连缓冲
	StrictConnect bool `mapstructure:"strict_connect"`
	PingInterval  int  `mapstructure:"ping_interval"  rule:"min=1,max=300"`
	MaxPingsOut   int  `mapstructure:"max_pings_out"  rule:"min=1,max=10"`
	BufferSize    int  `mapstructure:"buffer_size"    rule:"min=1024,max=67108864"`
	// EnableMetrics 发布订阅的 Prometheus 指标，随 metrics.path 一起暴露
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// MQNATSConfig NATS 与 JetStream.
type MQNATSConfig struct {
	JetStreamEnabled bool `mapstructure:"jetstream_enabled"`
	// ProvisionStream 启动时创建或更新事件流
	ProvisionStream bool     `mapstructure:"provision_stream"`
	StreamName      string   `mapstructure:"stream_name"       rule:"omitempty,excludesall=.*>"`
	StreamSubjects  []string `mapstructure:"stream_subjects"`
	StreamMaxMsgs   int64    `mapstructure:"stream_max_msgs"   rule:"min=-1"`
	StreamMaxBytes  int64    `mapstructure:"stream_max_bytes"  rule:"min=-1"`
	StreamMaxAge    int      `mapstructure:"stream_max_age"    rule:"min=0"` // 小时，0 不限
	StreamStorage   string   `mapstructure:"stream_storage"    rule:"omitempty,oneof=file memory"`
	StreamReplicas  int      `mapstructure:"stream_replicas"   rule:"min=1,max=5"`

	ConsumerAckWait       int `mapstructure:"consumer_ack_wait"        rule:"min=1"`
	ConsumerMaxDeliver    int `mapstructure:"consumer_max_deliver"     rule:"min=-1"`
	ConsumerMaxAckPending int `mapstructure:"consumer_max_ack_pending" rule:"min=1"`

	// DurablePrefix 持久消费者名前缀，每个主题一个消费者
	DurablePrefix string `mapstructure:"durable_prefix"`
	// QueueGroup 多实例共享消费的队列组，空则每个实例各收一份
	QueueGroup  string   `mapstructure:"queue_group"`
	TrackMsgID  bool     `mapstructure:"track_msg_id"`
	AckAsync    bool     `mapstructure:"ack_async"`
	JWT         string   `mapstructure:"jwt"`
	NKey        string   `mapstructure:"nkey"`
	ClusterURLs []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis Streams，每个主题一个 stream.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
	// ConsumerGroup 多实例共享消费；为空时每个订阅从最新位置独立读取，不确认也不重投
	ConsumerGroup string `mapstructure:"consumer_group"`
	// Consumer 组内消费者名，为空时取 client_id 加随机后缀
	Consumer string `mapstructure:"consumer"`
	// MaxLen 每个 stream 近似保留的条数，0 不裁剪
	MaxLen    int64         `mapstructure:"max_len"    rule:"min=0"`
	Block     time.Duration `mapstructure:"block"      rule:"min=10ms"`
	NackDelay time.Duration `mapstructure:"nack_delay" rule:"min=0"`
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeNATS)

	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.user", "")
	v.SetDefault("mq.common.password", "")
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.strict_connect", false)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.max_pings_out", DefaultMaxPingsOut)
	v.SetDefault("mq.common.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.common.enable_metrics", true)

	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.provision_stream", true)
	v.SetDefault("mq.nats.stream_name", DefaultStreamName)
	v.SetDefault("mq.nats.stream_subjects", []string{DefaultStreamSubject})
	v.SetDefault("mq.nats.stream_max_msgs", DefaultStreamMaxMsgs)
	v.SetDefault("mq.nats.stream_max_bytes", DefaultStreamMaxBytes)
	v.SetDefault("mq.nats.stream_max_age", DefaultStreamMaxAge)
	v.SetDefault("mq.nats.stream_storage", "file")
	v.SetDefault("mq.nats.stream_replicas", DefaultStreamReplicas)
	v.SetDefault("mq.nats.consumer_ack_wait", DefaultConsumerAckWait)
	v.SetDefault("mq.nats.consumer_max_deliver", DefaultConsumerMaxDeliver)
	v.SetDefault("mq.nats.consumer_max_ack_pending", DefaultConsumerMaxAckPending)
	v.SetDefault("mq.nats.durable_prefix", "docvault")
	v.SetDefault("mq.nats.queue_group", "docvault")
	v.SetDefault("mq.nats.track_msg_id", true)
	v.SetDefault("mq.nats.ack_async", false)
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.cluster_urls", []string{})

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.consumer_group", "docvault")
	v.SetDefault("mq.redis.consumer", "")
	v.SetDefault("mq.redis.max_len", 100000)
	v.SetDefault("mq.redis.block", "2s")
	v.SetDefault("mq.redis.nack_delay", "1s")
}
