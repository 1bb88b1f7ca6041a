package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/pkg/errors"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventDailyReminder     = "expiry.daily_reminder"
	EventUnprocessedCounts = "expiry.unprocessed_counts"
)

const (
	sourceService = "freshguard"
	schemaVersion = "v1"
)

// EventEnvelope is the JSON document written to the notification topic.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        sourceService,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target. An empty payload leaves
// target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage renders the envelope as a record keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to marshal envelope")
	}
	return &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// EnvelopeFromBytes parses a record value written by ToMessage.
func EnvelopeFromBytes(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.Validation("empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

func eventTypeFor(kind domainExpiry.ReportKind) string {
	switch kind {
	case domainExpiry.ReportDailyReminder:
		return EventDailyReminder
	case domainExpiry.ReportUnprocessedCounts:
		return EventUnprocessedCounts
	default:
		return "expiry." + string(kind)
	}
}

// publisher is the part of Producer the notifier needs.
type publisher interface {
	Publish(ctx context.Context, msg *Message) error
	Topic() string
}

// Notifier forwards expiry reports to the mail collaborator over Kafka.
// Records are keyed by "<kind>:<date>" so all reports of one day land on the
// same partition in order.
type Notifier struct {
	producer publisher
	logger   logging.Logger
}

var _ domainExpiry.Notifier = (*Notifier)(nil)

// NewNotifier wraps p.
func NewNotifier(p *Producer, logger logging.Logger) *Notifier {
	return newNotifier(p, logger)
}

func newNotifier(p publisher, logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{producer: p, logger: logger}
}

// Notify implements expiry.Notifier.
func (n *Notifier) Notify(ctx context.Context, r domainExpiry.Report) error {
	env, err := NewEventEnvelope(eventTypeFor(r.Kind), r)
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"date": r.Date, "timezone": r.Timezone}

	msg, err := env.ToMessage(n.producer.Topic(), string(r.Kind)+":"+r.Date)
	if err != nil {
		return err
	}
	if err := n.producer.Publish(ctx, msg); err != nil {
		return err
	}
	n.logger.Debug("report published",
		logging.String("event_id", env.EventID),
		logging.String("event_type", env.EventType),
		logging.String("topic", msg.Topic))
	return nil
}
