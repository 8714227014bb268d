// Package consumer subscribes to the reader topics and hands each message
// to the dispatcher.
package consumer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	mqttcommon "github.com/anand0056/rfid-server-setup/common/mqtt"
)

// Subscriber is the part of the MQTT client the consumer uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer MQTT消息消费者
type MQTTConsumer struct {
	subscriber Subscriber
	dispatcher *Dispatcher
	topics     []string
	qos        byte
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(subscriber Subscriber, dispatcher *Dispatcher, topics []string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber: subscriber,
		dispatcher: dispatcher,
		topics:     topics,
		qos:        qos,
		logger:     logger,
	}
}

// Start subscribes every topic and blocks until ctx is cancelled.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	for _, topic := range c.topics {
		if err := c.subscriber.Subscribe(topic, c.qos, c.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	c.logger.Info("MQTT consumer started", zap.Strings("topics", c.topics))

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.subscriber.Unsubscribe(c.topics...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	// not tied to Start's ctx: the message in flight at shutdown finishes its writes
	c.dispatcher.Dispatch(context.Background(), topic, payload)
	return nil
}
