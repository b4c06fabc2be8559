package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	// LockKey serializes callers on key until the surrounding transaction ends.
	LockKey(txCtx context.Context, key string) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// LockKey takes a transaction-scoped advisory lock on postgres. Other dialects
// (sqlite in tests) serialize writers already, so it is a no-op there.
func (t *transactionManager) LockKey(txCtx context.Context, key string) error {
	tx, ok := txCtx.Value(txKey).(*gorm.DB)
	if !ok {
		return fmt.Errorf("lock %q requested outside a transaction", key)
	}
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.WithContext(txCtx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
