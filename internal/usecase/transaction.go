package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Transaction runs a sequence of operations across stores that do not
// share a database transaction. When an operation fails, the
// compensations of the operations that already ran are executed in
// reverse order.
type Transaction struct {
	operations []Operation
	log        *zap.Logger
}

type Operation struct {
	Name       string
	Fn         func(context.Context) error
	Compensate func(context.Context) error
}

func NewTransaction(log *zap.Logger) *Transaction {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transaction{log: log}
}

// AddOperation appends an operation; compensate may be nil.
func (t *Transaction) AddOperation(name string, fn, compensate func(context.Context) error) {
	t.operations = append(t.operations, Operation{Name: name, Fn: fn, Compensate: compensate})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w (rolled back %d operations)", op.Name, err, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAt int) {
	// compensations must run even if the request context is gone
	ctx = context.WithoutCancel(ctx)
	for i := failedAt - 1; i >= 0; i-- {
		op := t.operations[i]
		if op.Compensate == nil {
			continue
		}
		if err := op.Compensate(ctx); err != nil {
			t.log.Error("compensation failed, data may be inconsistent",
				zap.String("operation", op.Name),
				zap.Error(err),
			)
		}
	}
}
