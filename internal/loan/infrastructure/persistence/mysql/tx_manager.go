package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/wyfcoding/loanservicing/pkg/db"
)

// TxManager implements application.TxManager: repositories called with the
// context returned by RunInTx share one transaction.
type TxManager struct {
	db *db.DB
}

func NewTxManager(database *db.DB) *TxManager {
	return &TxManager{db: database}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(db.CtxWithTx(ctx, tx))
	})
}

// getDB returns the transaction bound to ctx, falling back to the shared
// connection for plain reads.
func getDB(ctx context.Context, database *db.DB) *gorm.DB {
	if tx, ok := db.TxFromContext(ctx); ok {
		return tx
	}
	return database.DB.WithContext(ctx)
}
