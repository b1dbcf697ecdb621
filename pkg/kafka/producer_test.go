package kafka

import (
	"context"
	"errors"
	"testing"

	"roombook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "reservations")

	msg, err := NewMessage().
		WithKey("k1").
		WithValue(map[string]string{"room": "Room A"}).
		WithEventType("reservation.created").
		WithSource("bookings").
		Build()
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), msg))
	require.Len(t, w.written, 1)
	assert.Equal(t, "k1", string(w.written[0].Key))
	assert.JSONEq(t, `{"room":"Room A"}`, string(w.written[0].Value))

	headers := map[string]string{}
	for _, h := range w.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "reservation.created", headers[HeaderEventType])
	assert.Equal(t, "bookings", headers[HeaderSource])
	assert.NotEmpty(t, headers[HeaderEventID])
	assert.NotEmpty(t, headers[HeaderTimestamp])
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, "reservations")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "reservations")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")}), ErrProducerClosed)
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	var calls []string
	p := newProducer(&fakeWriter{}, "reservations")
	for _, name := range []string{"outer", "inner"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			calls = append(calls, name)
			return next(ctx, msg)
		})
	}
	p.Use(LoggingMiddleware(logger.Discard(), "reservations"))

	require.NoError(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")}))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestProducer_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "reservations")
	p.Use(LoggingMiddleware(logger.Discard(), "reservations"))

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")}), boom)
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(nil, logger.Discard())
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewProducer(&Config{Topic: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewProducer(&Config{Brokers: []string{"localhost:9092"}}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoTopic)
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{Enabled: false}).Validate())

	cfg := &Config{
		Enabled:      true,
		Brokers:      []string{"localhost:9092"},
		Topic:        DefaultTopic,
		MaxAttempts:  DefaultMaxAttempts,
		BatchTimeout: DefaultBatchTimeout,
		RequireAcks:  DefaultRequireAcks,
		Compression:  DefaultCompression,
		WriteTimeout: DefaultWriteTimeout,
	}
	assert.NoError(t, cfg.Validate())

	cfg.Compression = "brotli"
	cfg.RequireAcks = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1. ProducerCompression")
	assert.Contains(t, err.Error(), "2. ProducerRequireAcks")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaBrokers, "b1:9092, b2:9092,")
	t.Setenv(EnvKafkaTopic, "rooms")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, "rooms", cfg.Topic)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
}
