package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos run against Tx when it is set and fall back to their own handle
// otherwise, so a caller can group writes without the repos knowing.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}

func (d Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: d.Ctx, Tx: tx}
}
