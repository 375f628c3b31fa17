package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction bound to ctx. The
// transaction is committed when fn returns nil and rolled back otherwise,
// exactly once, including when fn panics (the panic is re-raised after the
// rollback).
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		done = true
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	done = true
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExecScript executes a possibly multi-statement SQL script verbatim on the
// connection (or transaction) behind db. Bypassing gorm's statement builder
// keeps `?` and `$$` in function bodies untouched.
func ExecScript(ctx context.Context, db *gorm.DB, script string) error {
	_, err := db.Statement.ConnPool.ExecContext(ctx, script)
	return err
}
