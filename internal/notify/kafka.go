package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"stable-scheduler/internal/config"
)

// KafkaNotifier publishes notification payloads to the dispatch bus. The
// email worker consuming these topics owns templating and delivery.
type KafkaNotifier struct {
	Registrations   *kafka.Writer
	Unregistrations *kafka.Writer
	Admins          *kafka.Writer
}

func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	writer := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.Brokers,
			Topic:   topic,
		})
	}
	return &KafkaNotifier{
		Registrations:   writer(cfg.Topics.Registrations),
		Unregistrations: writer(cfg.Topics.Unregistrations),
		Admins:          writer(cfg.Topics.AdminBroadcasts),
	}
}

func (n *KafkaNotifier) NotifyRegistration(ctx context.Context, p Payload) error {
	return publish(ctx, n.Registrations, p)
}

func (n *KafkaNotifier) NotifyUnregistration(ctx context.Context, p Payload) error {
	return publish(ctx, n.Unregistrations, p)
}

func (n *KafkaNotifier) NotifyAdmins(ctx context.Context, p Payload) error {
	return publish(ctx, n.Admins, p)
}

func (n *KafkaNotifier) Close() error {
	for _, w := range []*kafka.Writer{n.Registrations, n.Unregistrations, n.Admins} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

func publish(ctx context.Context, writer *kafka.Writer, p Payload) error {
	msgBytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.EventID),
		Value: msgBytes,
	})
}

// EnsureTopicsExist creates the dispatch topics if the broker does not have
// them yet. Best effort on startup.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return controllerConn.CreateTopics(configs...)
}
