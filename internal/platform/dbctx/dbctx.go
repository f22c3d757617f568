// Package dbctx carries a context.Context alongside an optional open
// transaction, so repo methods can run standalone or as part of a caller's
// transaction without two copies of every query.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}

func WithTx(ctx context.Context, tx *gorm.DB) Context {
	return Context{Ctx: ctx, Tx: tx}
}

// Resolve returns dbc.Tx if set, else base, always scoped WithContext.
func (dbc Context) Resolve(base *gorm.DB) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return base.WithContext(dbc.Ctx)
}
