package events

import (
	"context"
	"fmt"

	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	TypeReservationCreated   = "reservation.created"
	TypeReservationCancelled = "reservation.cancelled"

	SchemaVersion = "1"
)

// Publisher announces reservation lifecycle changes. A failed publish never
// undoes the store change that triggered it.
type Publisher interface {
	ReservationCreated(ctx context.Context, r *model.Reservation) error
	ReservationCancelled(ctx context.Context, r *model.Reservation, by string) error
}

type Payload struct {
	Key         string             `json:"key"`
	Reservation *model.Reservation `json:"reservation"`
	CancelledBy string             `json:"cancelled_by,omitempty"`
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) ReservationCreated(ctx context.Context, r *model.Reservation) error {
	return p.publish(ctx, TypeReservationCreated, Payload{Key: r.Key(), Reservation: r})
}

func (p *kafkaPublisher) ReservationCancelled(ctx context.Context, r *model.Reservation, by string) error {
	return p.publish(ctx, TypeReservationCancelled, Payload{Key: r.Key(), Reservation: r, CancelledBy: by})
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, payload Payload) error {
	msg, err := kafka.NewMessage().
		WithKey(payload.Key).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

type noopPublisher struct {
	log *logger.Logger
}

// NewNoopPublisher is used when event publishing is disabled.
func NewNoopPublisher(log *logger.Logger) Publisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) ReservationCreated(_ context.Context, r *model.Reservation) error {
	p.log.Debug("Event publishing disabled, dropping event", "event_type", TypeReservationCreated, "key", r.Key())
	return nil
}

func (p *noopPublisher) ReservationCancelled(_ context.Context, r *model.Reservation, _ string) error {
	p.log.Debug("Event publishing disabled, dropping event", "event_type", TypeReservationCancelled, "key", r.Key())
	return nil
}
