package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/docvault/pkg/configs"
)

const drainTimeout = 30 * time.Second

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsFactory 基于 watermill-nats 创建发布端与订阅端.
//
// 启用 JetStream 时事件写入一个名为 StreamName 的流（默认覆盖 dv.>），
// 由这里创建或更新；watermill 自带的按主题建流不使用，主题名含点号不能直接当流名.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	url := natsURL(cfg)
	opts := natsOptions(cfg)
	js := jetStreamConfig(cfg)

	if !js.Disabled && cfg.NATS.ProvisionStream {
		if err := provisionStream(url, opts, cfg.NATS); err != nil {
			return nil, nil, err
		}

		logger.Info("JetStream stream ready", watermill.LogFields{
			"stream":   cfg.NATS.StreamName,
			"subjects": strings.Join(streamSubjects(cfg.NATS), ","),
		})
	}

	marshaler := &nats.NATSMarshaler{}

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		Marshaler:   marshaler,
		JetStream:   js,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats publisher: %w", err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:              url,
		NatsOptions:      opts,
		Unmarshaler:      marshaler,
		JetStream:        js,
		QueueGroupPrefix: cfg.NATS.QueueGroup,
		AckWaitTimeout:   time.Duration(cfg.NATS.ConsumerAckWait) * time.Second,
		CloseTimeout:     drainTimeout,
	}, logger)
	if err != nil {
		_ = pub.Close()

		return nil, nil, fmt.Errorf("nats subscriber: %w", err)
	}

	return pub, sub, nil
}

func natsURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

func natsOptions(cfg *configs.MQConfig) []nc.Option {
	c := cfg.Common

	opts := []nc.Option{
		nc.Name(c.ClientID),
		nc.MaxReconnects(c.MaxReconnects),
		nc.ReconnectWait(time.Duration(c.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(c.PingInterval) * time.Second),
		nc.MaxPingsOutstanding(c.MaxPingsOut),
		nc.ReconnectBufSize(c.BufferSize),
		nc.DrainTimeout(drainTimeout),
		nc.RetryOnFailedConnect(!c.StrictConnect),
	}

	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case c.User != "":
		opts = append(opts, nc.UserInfo(c.User, c.Password))
	}

	return opts
}

func jetStreamConfig(cfg *configs.MQConfig) nats.JetStreamConfig {
	n := cfg.NATS
	if !n.JetStreamEnabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	sub := []nc.SubOpt{
		nc.AckExplicit(),
		nc.DeliverAll(),
	}

	if n.ConsumerAckWait > 0 {
		sub = append(sub, nc.AckWait(time.Duration(n.ConsumerAckWait)*time.Second))
	}

	if n.ConsumerMaxDeliver != 0 {
		sub = append(sub, nc.MaxDeliver(n.ConsumerMaxDeliver))
	}

	if n.ConsumerMaxAckPending > 0 {
		sub = append(sub, nc.MaxAckPending(n.ConsumerMaxAckPending))
	}

	return nats.JetStreamConfig{
		SubscribeOptions:  slices.Clip(sub),
		TrackMsgId:        n.TrackMsgID,
		AckAsync:          n.AckAsync,
		DurablePrefix:     n.DurablePrefix,
		DurableCalculator: durableName,
	}
}

// durableName 每个主题一个持久消费者.消费者名不能含 . * >，替换为 _.
func durableName(prefix, topic string) string {
	if prefix == "" {
		return ""
	}

	return prefix + "_" + strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(topic)
}

func streamSubjects(n configs.MQNATSConfig) []string {
	if len(n.StreamSubjects) > 0 {
		return n.StreamSubjects
	}

	return []string{configs.DefaultStreamSubject}
}

func streamConfig(n configs.MQNATSConfig) *nc.StreamConfig {
	sc := &nc.StreamConfig{
		Name:        n.StreamName,
		Description: "docvault document and lock events",
		Subjects:    streamSubjects(n),
		Retention:   nc.LimitsPolicy,
		MaxMsgs:     n.StreamMaxMsgs,
		MaxBytes:    n.StreamMaxBytes,
		MaxAge:      time.Duration(n.StreamMaxAge) * time.Hour,
		Storage:     nc.FileStorage,
		Replicas:    max(n.StreamReplicas, 1),
		Discard:     nc.DiscardOld,
	}

	if sc.Name == "" {
		sc.Name = configs.DefaultStreamName
	}

	if n.StreamStorage == "memory" {
		sc.Storage = nc.MemoryStorage
	}

	if n.TrackMsgID {
		sc.Duplicates = 2 * time.Minute
	}

	return sc
}

// provisionStream 流不存在则创建，存在则按配置更新限制.
func provisionStream(url string, opts []nc.Option, n configs.MQNATSConfig) error {
	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer conn.Close()

	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	sc := streamConfig(n)

	_, err = js.StreamInfo(sc.Name)

	switch {
	case errors.Is(err, nc.ErrStreamNotFound):
		_, err = js.AddStream(sc)
	case err == nil:
		_, err = js.UpdateStream(sc)
	}

	if err != nil {
		return fmt.Errorf("provision stream %s: %w", sc.Name, err)
	}

	return nil
}
