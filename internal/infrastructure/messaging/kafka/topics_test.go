package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
)

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope(EventUnprocessedCounts, map[string]int{"critical": 2})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "freshguard", env.Source)
	assert.Equal(t, "v1", env.SchemaVersion)

	msg, err := env.ToMessage("topic", "key")
	require.NoError(t, err)
	assert.Equal(t, EventUnprocessedCounts, msg.Headers["event_type"])
	assert.Equal(t, "key", string(msg.Key))

	back, err := EnvelopeFromBytes(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, back.EventID)

	var payload map[string]int
	require.NoError(t, back.DecodePayload(&payload))
	assert.Equal(t, 2, payload["critical"])
}

func TestEnvelopeFromBytes_Invalid(t *testing.T) {
	_, err := EnvelopeFromBytes(nil)
	assert.Error(t, err)
	_, err = EnvelopeFromBytes([]byte("{"))
	assert.Error(t, err)
}

func TestDecodePayload_Empty(t *testing.T) {
	env := &EventEnvelope{}
	target := map[string]int{"keep": 1}
	require.NoError(t, env.DecodePayload(&target))
	assert.Equal(t, 1, target["keep"])
}

func testReport() domainExpiry.Report {
	return domainExpiry.Report{
		Kind:                domainExpiry.ReportDailyReminder,
		Date:                "2024-03-10",
		Timezone:            "Europe/Berlin",
		Enabled:             true,
		CriticalUnprocessed: 2,
		WarningUnprocessed:  1,
		CriticalTotal:       3,
		WarningTotal:        1,
		Items: []domainExpiry.ReportItem{
			{ProductID: "p1", Name: "Milk", Band: domainExpiry.BandCritical, DaysUntilExpiry: 0},
		},
		GeneratedAt: time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC),
	}
}

func TestNotifier_PublishesReport(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = append(captured, msgs...)
			return nil
		},
	})
	n := NewNotifier(p, nil)

	require.NoError(t, n.Notify(context.Background(), testReport()))
	require.Len(t, captured, 1)

	msg := captured[0]
	assert.Equal(t, "freshguard.test", msg.Topic)
	assert.Equal(t, "daily_reminder:2024-03-10", string(msg.Key))

	env, err := EnvelopeFromBytes(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, EventDailyReminder, env.EventType)
	assert.Equal(t, "2024-03-10", env.Metadata["date"])

	var got domainExpiry.Report
	require.NoError(t, env.DecodePayload(&got))
	assert.Equal(t, 2, got.CriticalUnprocessed)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
}

func TestNotifier_CountsEventType(t *testing.T) {
	assert.Equal(t, EventUnprocessedCounts, eventTypeFor(domainExpiry.ReportUnprocessedCounts))
	assert.Equal(t, "expiry.custom", eventTypeFor(domainExpiry.ReportKind("custom")))
}

type stubPublisher struct {
	err error
}

func (s stubPublisher) Publish(context.Context, *Message) error { return s.err }
func (s stubPublisher) Topic() string                           { return "t" }

func TestNotifier_PropagatesPublishError(t *testing.T) {
	n := newNotifier(stubPublisher{err: errors.New("down")}, nil)
	err := n.Notify(context.Background(), testReport())
	assert.EqualError(t, err, "down")
}
