package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// passthrough marks errors returned by fn so they reach the caller unwrapped.
type passthrough struct{ err error }

func (p *passthrough) Error() string { return p.err.Error() }
func (p *passthrough) Unwrap() error { return p.err }

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		if err := fn(sessCtx); err != nil {
			return nil, &passthrough{err: err}
		}
		return nil, nil
	})

	if err != nil {
		var p *passthrough
		if errors.As(err, &p) {
			return p.err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
