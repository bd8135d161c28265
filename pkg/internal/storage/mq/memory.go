package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/docvault/pkg/configs"
)

// DefaultMemoryBuffer 进程内通道的输出缓冲.
const DefaultMemoryBuffer = 64

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 同一个 GoChannel 同时充当 Publisher 与 Subscriber.
func memoryFactory(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: DefaultMemoryBuffer}, logger)

	return ch, ch, nil
}
