package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rent-reclaim-sol/internal/logic/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// SummaryNotifier 将完成的 RunSummary 发布到 Kafka，供下游统计/通知服务消费。
// 发布失败只影响通知，不影响 run 本身的结果。
type SummaryNotifier struct {
	producer *kafka.Producer
	topic    string
	timeout  time.Duration
}

func NewSummaryNotifier(producer *kafka.Producer, topic string) *SummaryNotifier {
	return &SummaryNotifier{
		producer: producer,
		topic:    topic,
		timeout:  10 * time.Second,
	}
}

// PublishRunSummary 发送汇总消息并等待 broker ack
func (n *SummaryNotifier) PublishRunSummary(ctx context.Context, wallet string, summary *domain.RunSummary) error {
	payload, err := json.Marshal(struct {
		Wallet string `json:"wallet"`
		*domain.RunSummary
	}{Wallet: wallet, RunSummary: summary})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &n.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(wallet),
		Value: payload,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce error: %w", err)
	}

	select {
	case e, ok := <-deliveryChan:
		if !ok {
			return fmt.Errorf("delivery channel closed unexpectedly")
		}
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("invalid message type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return msg.TopicPartition.Error
		}
		return nil
	case <-time.After(n.timeout):
		return fmt.Errorf("delivery timeout (>%v)", n.timeout)
	case <-ctx.Done():
		return fmt.Errorf("ctx cancelled: %w", ctx.Err())
	}
}
