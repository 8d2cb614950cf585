package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"polnischlernen/internal/logging"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Publisher veröffentlicht Lernereignisse
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// WatermillPublisher schreibt Ereignisse auf ein watermill-Topic
type WatermillPublisher struct {
	publisher message.Publisher
	logger    logging.Logger
	topic     string
}

// PublisherConfig bestimmt das Transportmittel.
// Ohne Kafka-Broker wird ein prozessinterner GoChannel verwendet.
type PublisherConfig struct {
	KafkaBrokers []string
	Topic        string
	Logger       logging.Logger
}

// NewPublisher liefert den Publisher und, beim GoChannel, den passenden Subscriber.
// Bei Kafka ist der Subscriber nil.
func NewPublisher(cfg PublisherConfig) (*WatermillPublisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(cfg.Logger.Slog())

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka-publisher erstellen: %w", err)
		}
		return newWatermillPublisher(pub, cfg), nil, nil
	}

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
	return newWatermillPublisher(ch, cfg), ch, nil
}

func newWatermillPublisher(pub message.Publisher, cfg PublisherConfig) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: pub,
		logger:    cfg.Logger.With("component", "events"),
		topic:     cfg.Topic,
	}
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ereignis kodieren: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("user_id", event.UserID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Error("Ereignis konnte nicht veröffentlicht werden",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("ereignis veröffentlichen: %w", err)
	}

	p.logger.Debug("Ereignis veröffentlicht",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Consume liest Ereignisse vom Topic und übergibt sie an handle, bis ctx endet
func Consume(ctx context.Context, sub message.Subscriber, topic string, logger logging.Logger, handle func(*Event)) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("topic abonnieren: %w", err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("Ungültiges Ereignis verworfen", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			handle(&event)
			msg.Ack()
		}
	}()
	return nil
}

// LogHandler protokolliert eingehende Ereignisse
func LogHandler(logger logging.Logger) func(*Event) {
	return func(e *Event) {
		logger.Info("📣 Lernereignis",
			"event_type", e.Type,
			"user_id", e.UserID,
			"event_id", e.ID)
	}
}

// MockPublisher sammelt Ereignisse im Speicher, für Tests
type MockPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events liefert eine Kopie der gesammelten Ereignisse
func (m *MockPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types liefert nur die Ereignistypen in Reihenfolge
func (m *MockPublisher) Types() []EventType {
	events := m.Events()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
