package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Transaction 在事务中执行 fn，事务通过 ctx 传递，嵌套调用加入外层事务
func Transaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn 返回 ctx 中的事务，没有事务时返回普通会话
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
