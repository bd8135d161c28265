// Package mq 把 watermill 的 Publisher 与 Subscriber 包成统一的客户端，后端按 mq.type 选择：
//   - nats: JetStream 持久化，按主题建持久消费者
//   - redis: Redis Streams，消费组确认与重投
//   - memory: 进程内 gochannel，单实例部署与测试使用
//
//	client, err := mq.New(ctx, &cfg.MQ)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	msg, _ := queue.NewWatermillMessage(queue.TopicLockOverridden, payload)
//	err = client.Publish(ctx, queue.TopicLockOverridden, msg)
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"

	watermill "github.com/ThreeDotsLabs/watermill"
	wmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/hashicorp/go-multierror"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
)

// Factory 按配置创建一对 Publisher 与 Subscriber.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}

	errNotInitialized = errors.New("mq client not initialized")
)

// RegisterFactory 由各后端文件的 init 调用.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型，按名称排序.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	typ        configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
}

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType {
	return c.typ
}

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Subscriber 返回底层 Subscriber.
func (c *Client) Subscriber() message.Subscriber {
	return c.subscriber
}

// Publish 一次发布一批消息.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errNotInitialized
	}

	if err := c.publisher.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

// Subscribe 订阅 topic，ctx 结束时通道关闭.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errNotInitialized
	}

	ch, err := c.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return ch, nil
}

// Close 先关发布端再关订阅端，收集全部错误.
func (c *Client) Close() error {
	var result *multierror.Error

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close publisher: %w", err))
		}
	}

	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close subscriber: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// NewLogger 返回桥接到应用日志的 watermill 日志器.
func NewLogger() watermill.LoggerAdapter {
	return newZerologAdapter(*nlog.Logger())
}

// New 按配置创建消息队列客户端.
func New(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	pub, sub, err := factory(ctx, cfg, NewLogger())
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	client := &Client{typ: cfg.Type, publisher: pub, subscriber: sub}

	if cfg.Common.EnableMetrics {
		if err := client.instrument(); err != nil {
			_ = client.Close()

			return nil, err
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("mq client ready")

	return client, nil
}

// instrument 发布订阅计数与耗时注册到应用的指标注册表.
func (c *Client) instrument() error {
	builder := wmetrics.NewPrometheusMetricsBuilder(metrics.Registerer(), "docvault", "mq")

	pub, err := builder.DecoratePublisher(c.publisher)
	if err != nil {
		return fmt.Errorf("decorate publisher with metrics: %w", err)
	}

	sub, err := builder.DecorateSubscriber(c.subscriber)
	if err != nil {
		return fmt.Errorf("decorate subscriber with metrics: %w", err)
	}

	c.publisher, c.subscriber = pub, sub

	return nil
}
