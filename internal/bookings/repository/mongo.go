package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName          = "Reservations"
	CancelledCollectionName = "Cancelled_reservations"
)

type participantDocument struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
}

// reservationDocument keeps the flat field shape of the CSV record, plus the
// derived key and bookkeeping timestamps.
type reservationDocument struct {
	ID          primitive.ObjectID    `bson:"_id,omitempty"`
	Key         string                `bson:"key"`
	Venue       string                `bson:"venue"`
	Room        string                `bson:"room"`
	Date        string                `bson:"date"`
	Start       string                `bson:"start"`
	End         string                `bson:"end"`
	PartySize   int                   `bson:"pax"`
	OwnerID     string                `bson:"owner_id"`
	OwnerName   string                `bson:"owner_name"`
	Members     []participantDocument `bson:"members"`
	CreatedAt   time.Time             `bson:"created_at"`
	CancelledAt *time.Time            `bson:"cancelled_at,omitempty"`
}

func toDocument(r *model.Reservation) *reservationDocument {
	record := toRecord(r)
	doc := &reservationDocument{
		Key:       r.Key(),
		Venue:     record[0],
		Room:      record[1],
		Date:      record[2],
		Start:     record[3],
		End:       record[4],
		PartySize: r.PartySize,
		OwnerID:   r.OwnerID,
		OwnerName: r.OwnerName,
		Members:   make([]participantDocument, 0, len(r.Participants)),
	}
	for _, p := range r.Participants {
		doc.Members = append(doc.Members, participantDocument{ID: p.ID, Name: p.Name})
	}
	return doc
}

func (d *reservationDocument) toModel() (*model.Reservation, error) {
	values := map[string]string{
		"venue":      d.Venue,
		"room":       d.Room,
		"date":       d.Date,
		"start":      d.Start,
		"end":        d.End,
		"pax":        strconv.Itoa(d.PartySize),
		"owner_id":   d.OwnerID,
		"owner_name": d.OwnerName,
	}
	r, err := fromFields(func(column string) string { return values[column] })
	if err != nil {
		return nil, err
	}
	for _, m := range d.Members {
		r.Participants = append(r.Participants, model.Participant{ID: m.ID, Name: m.Name})
	}
	return r, nil
}

type mongoBookingRepository struct {
	active       *mongo.Collection
	cancelled    *mongo.Collection
	txManager    mongotx.TransactionManager
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoBookingRepository(client *mongo.Client, database string, readTimeout, writeTimeout time.Duration) BookingRepository {
	db := client.Database(database)
	return &mongoBookingRepository{
		active:       db.Collection(CollectionName),
		cancelled:    db.Collection(CancelledCollectionName),
		txManager:    mongotx.NewTransactionManager(client),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without losing the session, so it is
// returned as is.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Append(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.writeTimeout)
	defer cancel()

	doc := toDocument(reservation)
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.active.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to append booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) List(ctx context.Context) ([]*model.Reservation, error) {
	return r.findAll(ctx, r.active)
}

func (r *mongoBookingRepository) ListCancelled(ctx context.Context) ([]*model.Reservation, error) {
	return r.findAll(ctx, r.cancelled)
}

func (r *mongoBookingRepository) findAll(ctx context.Context, collection *mongo.Collection) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*reservationDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	reservations := make([]*model.Reservation, 0, len(docs))
	for _, doc := range docs {
		res, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode booking %s: %w", doc.ID.Hex(), err)
		}
		reservations = append(reservations, res)
	}
	return reservations, nil
}

func (r *mongoBookingRepository) Relocate(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.writeTimeout)
	defer cancel()

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var doc reservationDocument
		err := r.active.FindOneAndDelete(sessCtx, bson.M{"key": reservation.Key()}).Decode(&doc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return bookingserrors.ErrNotFound
			}
			return fmt.Errorf("failed to remove active booking: %w", err)
		}

		cancelledAt := time.Now().UTC().Truncate(time.Millisecond)
		doc.ID = primitive.NilObjectID
		doc.CancelledAt = &cancelledAt
		if _, err := r.cancelled.InsertOne(sessCtx, &doc); err != nil {
			return fmt.Errorf("failed to insert cancelled booking: %w", err)
		}
		return nil
	})
}
