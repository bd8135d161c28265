package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/docvault/pkg/configs"
)

// 每个主题对应一个 stream，条目字段如下.
const (
	fieldUUID     = "uuid"
	fieldPayload  = "payload"
	fieldMetadata = "metadata"

	readCount = 10
)

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 发布端与订阅端共用一个连接池，由订阅端关闭.
func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: cfg.Common.ClientID,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	pub := &RedisPublisher{client: rdb, maxLen: cfg.Redis.MaxLen}
	sub := &RedisSubscriber{
		client:   rdb,
		conf:     cfg.Redis,
		consumer: consumerName(cfg),
		logger:   logger.With(watermill.LogFields{"backend": "redis"}),
		closing:  make(chan struct{}),
	}

	return pub, sub, nil
}

func consumerName(cfg *configs.MQConfig) string {
	if cfg.Redis.Consumer != "" {
		return cfg.Redis.Consumer
	}

	return cfg.Common.ClientID + "-" + watermill.NewShortUUID()
}

// RedisPublisher XADD 写入，按 maxLen 近似裁剪.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
}

// Publish 元数据随条目一起写入.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		values, err := streamValues(msg)
		if err != nil {
			return err
		}

		err = p.client.XAdd(msg.Context(), &redis.XAddArgs{
			Stream: topic,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: values,
		}).Err()
		if err != nil {
			return fmt.Errorf("xadd %s: %w", topic, err)
		}
	}

	return nil
}

// Close 连接池由订阅端关闭.
func (p *RedisPublisher) Close() error {
	return nil
}

func streamValues(msg *message.Message) (map[string]any, error) {
	meta, err := sonic.Marshal(msg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata of %s: %w", msg.UUID, err)
	}

	return map[string]any{
		fieldUUID:     msg.UUID,
		fieldPayload:  []byte(msg.Payload),
		fieldMetadata: meta,
	}, nil
}

func toMessage(x redis.XMessage) (*message.Message, error) {
	uuid, _ := x.Values[fieldUUID].(string)
	payload, _ := x.Values[fieldPayload].(string)

	if uuid == "" {
		return nil, fmt.Errorf("stream entry %s has no uuid", x.ID)
	}

	msg := message.NewMessage(uuid, []byte(payload))

	if raw, _ := x.Values[fieldMetadata].(string); raw != "" {
		if err := sonic.UnmarshalString(raw, &msg.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", x.ID, err)
		}
	}

	if msg.Metadata == nil {
		msg.Metadata = message.Metadata{}
	}

	msg.Metadata.Set("stream_id", x.ID)

	return msg, nil
}

// RedisSubscriber 配置了消费组时 XREADGROUP 读取，Ack 后 XACK，Nack 后延迟重投；
// 启动时先处理本消费者名下未确认的条目.没有消费组时从订阅时刻起 XREAD，不重投.
type RedisSubscriber struct {
	client   *redis.Client
	conf     configs.MQRedisConfig
	consumer string
	logger   watermill.LoggerAdapter

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

// Subscribe 每次调用一个读取协程，消息逐条投递，前一条确认后才投递下一条.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("redis subscriber closed")
	}

	if s.conf.ConsumerGroup != "" {
		err := s.client.XGroupCreateMkStream(ctx, topic, s.conf.ConsumerGroup, "$").Err()
		if err != nil && !isBusyGroup(err) {
			return nil, fmt.Errorf("create consumer group %s on %s: %w", s.conf.ConsumerGroup, topic, err)
		}
	}

	ch := make(chan *message.Message)

	s.wg.Add(1)

	go s.consume(ctx, topic, ch)

	return ch, nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (s *RedisSubscriber) consume(ctx context.Context, topic string, ch chan<- *message.Message) {
	defer s.wg.Done()
	defer close(ch)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	grouped := s.conf.ConsumerGroup != ""

	last := "$"
	if grouped {
		last = "0"
	}

	for {
		entries, err := s.read(ctx, topic, last)
		if ctx.Err() != nil {
			return
		}

		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Error("read stream failed", err, watermill.LogFields{"topic": topic})

			if !sleepCtx(ctx, max(s.conf.NackDelay, time.Second)) {
				return
			}

			continue
		}

		if grouped && last == "0" && len(entries) == 0 {
			last = ">"
			continue
		}

		for _, e := range entries {
			if !s.deliver(ctx, topic, e, ch) {
				return
			}

			if !grouped {
				last = e.ID
			}
		}
	}
}

func (s *RedisSubscriber) read(ctx context.Context, topic, last string) ([]redis.XMessage, error) {
	var (
		streams []redis.XStream
		err     error
	)

	if s.conf.ConsumerGroup == "" {
		streams, err = s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{topic, last},
			Count:   readCount,
			Block:   s.conf.Block,
		}).Result()
	} else {
		block := s.conf.Block
		if last == "0" {
			block = -1
		}

		streams, err = s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.conf.ConsumerGroup,
			Consumer: s.consumer,
			Streams:  []string{topic, last},
			Count:    readCount,
			Block:    block,
		}).Result()
	}

	if err != nil || len(streams) == 0 {
		return nil, err
	}

	return streams[0].Messages, nil
}

// deliver 返回 false 表示订阅结束.
func (s *RedisSubscriber) deliver(ctx context.Context, topic string, e redis.XMessage, ch chan<- *message.Message) bool {
	fields := watermill.LogFields{"topic": topic, "stream_id": e.ID}

	for {
		msg, err := toMessage(e)
		if err != nil {
			// 无法解析的条目确认掉，避免每次启动都重读
			s.logger.Error("drop malformed stream entry", err, fields)
			s.ack(ctx, topic, e.ID)

			return true
		}

		msg.SetContext(ctx)

		select {
		case ch <- msg:
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			s.ack(ctx, topic, e.ID)
			return true
		case <-msg.Nacked():
			s.logger.Debug("message nacked, redelivering", fields)

			if !sleepCtx(ctx, s.conf.NackDelay) {
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}

func (s *RedisSubscriber) ack(ctx context.Context, topic, id string) {
	if s.conf.ConsumerGroup == "" {
		return
	}

	if err := s.client.XAck(ctx, topic, s.conf.ConsumerGroup, id).Err(); err != nil {
		s.logger.Error("xack failed", err, watermill.LogFields{"topic": topic, "stream_id": id})
	}
}

// Close 停止全部读取协程后关闭连接池.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	s.wg.Wait()

	return s.client.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
