package memory

import (
	"context"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/tx"
)

// TxManager satisfies tx.Manager for the in-memory store. Store operations
// are individually atomic, so fn simply runs in place.
type TxManager struct{}

// NewTxManager creates a pass-through transaction manager.
func NewTxManager() TxManager {
	return TxManager{}
}

// RunInTransaction executes fn directly.
func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly executes fn directly.
func (TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ tx.ReadOnlyManager = TxManager{}
