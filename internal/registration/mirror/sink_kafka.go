package mirror

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

const formTypeHeader = "form-type"

// KafkaSink produces each event to a topic, keyed by registration id.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to brokers. Extra kgo options are appended.
func NewKafkaSink(brokers []string, topic string, opts ...kgo.Opt) (*KafkaSink, error) {
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerLinger(0),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Send(ctx context.Context, ev Event) error {
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(ev.Key),
		Value: ev.Body,
		Headers: []kgo.RecordHeader{
			{Key: formTypeHeader, Value: []byte(ev.FormType)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce mirror event: %w", err)
	}
	return nil
}

// Close releases the producer.
func (s *KafkaSink) Close() {
	s.client.Close()
}
