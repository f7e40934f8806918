package repository

import (
	"context"

	"gorm.io/gorm"
)

// txContextKey carries the open transaction through a service call chain.
// A struct key cannot collide with context values set elsewhere.
type txContextKey struct{}

// TransactionManager runs a function inside a database transaction. The
// transaction handle travels in the context, so repositories invoked with
// the transaction context join it transparently through GetDB.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &gormTxManager{db: db}
}

// RunInTx opens a transaction, hands fn a context carrying it, and commits
// or rolls back on fn's result. A call made with a context that already
// carries a transaction joins it instead of opening a nested one.
func (m *gormTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// GetDB returns the transaction from ctx when one is open, the root handle
// otherwise.
func GetDB(ctx context.Context, root *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return root.WithContext(ctx)
}
