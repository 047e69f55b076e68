package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// KafkaChannel publishes every order event to a topic, keyed by order id so
// that one order's events stay in one partition.
type KafkaChannel struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(cfg models.KafkaConfig) (sarama.SyncProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // Must be true for SyncProducer
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second
	if cfg.SessionTimeoutMs > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
	}

	brokerList := strings.Split(cfg.BrokerList, ",")
	producer, err := sarama.NewSyncProducer(brokerList, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	return producer, nil
}

func NewKafkaChannel(producer sarama.SyncProducer, topic string) *KafkaChannel {
	return &KafkaChannel{producer: producer, topic: topic}
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Recipient(Event) string { return c.topic }

func (c *KafkaChannel) Send(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, _, err = c.producer.SendMessage(&sarama.ProducerMessage{
		Topic: c.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(e.Type)},
		},
		Timestamp: e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", c.topic, err)
	}
	return nil
}

func (c *KafkaChannel) Close() error {
	if c.producer != nil {
		return c.producer.Close()
	}
	return nil
}
