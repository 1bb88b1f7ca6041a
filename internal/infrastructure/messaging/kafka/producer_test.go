package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FreshGuard/internal/config"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	closes    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closes++
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return newProducer(w, "freshguard.test", nil)
}

func TestValidateProducerConfig(t *testing.T) {
	valid := config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}
	assert.NoError(t, ValidateProducerConfig(valid))

	noBrokers := valid
	noBrokers.Brokers = nil
	assert.Error(t, ValidateProducerConfig(noBrokers))

	noTopic := valid
	noTopic.Topic = ""
	assert.Error(t, ValidateProducerConfig(noTopic))

	negative := valid
	negative.MaxAttempts = -1
	assert.Error(t, ValidateProducerConfig(negative))
}

func TestNewProducer_BuildsWriter(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", RequiredAcks: -1}, nil)
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, config.DefaultKafkaMaxAttempts, w.MaxAttempts)
	assert.Equal(t, "t", p.Topic())
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})

	err := p.Publish(context.Background(), &Message{Key: []byte("k"), Value: []byte("v"), Headers: map[string]string{"h": "1"}})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, "freshguard.test", captured[0].Topic)
	assert.Equal(t, "k", string(captured[0].Key))
	assert.Equal(t, "v", string(captured[0].Value))
	assert.False(t, captured[0].Time.IsZero())
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "h", captured[0].Headers[0].Key)

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesSent.Load())
	assert.Equal(t, int64(1), m.BytesSent.Load())
	assert.NotNil(t, m.LastSentAt.Load())
}

func TestPublish_Failure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("broker down")
		},
	})
	err := p.Publish(context.Background(), &Message{Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMessageError))
	assert.EqualError(t, errors.Unwrap(err), "broker down")
	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesFailed.Load())
}

func TestPublish_Rejects(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			t.Fatal("writer must not be called")
			return nil
		},
	})

	assert.Error(t, p.Publish(context.Background(), &Message{}))
	assert.Error(t, p.Publish(context.Background(), &Message{Value: []byte(strings.Repeat("x", defaultMaxMessageBytes+1))}))

	noTopic := newProducer(&mockKafkaWriter{}, "", nil)
	assert.Error(t, noTopic.Publish(context.Background(), &Message{Value: []byte("v")}))
}

func TestClose_Idempotent(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closes)

	err := p.Publish(context.Background(), &Message{Value: []byte("v")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}
