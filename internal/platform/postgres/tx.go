package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/learnplan-api/internal/store"
)

// TxManager implements store.TxManager over a PostgreSQL connection pool.
// Units of work run inside a single database transaction.
type TxManager struct {
	db         *sql.DB
	bcryptCost int
	logger     *slog.Logger
}

// NewTxManager creates a TxManager for the given pool.
func NewTxManager(db *sql.DB, bcryptCost int, logger *slog.Logger) *TxManager {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{db: db, bcryptCost: bcryptCost, logger: logger}
}

var _ store.TxManager = (*TxManager)(nil)

func (m *TxManager) storesFor(db store.DBTX) store.Stores {
	return store.Stores{
		Plans:         NewPostgresPlanStore(db, m.logger),
		Topics:        NewPostgresTopicStore(db, m.logger),
		Enrollments:   NewPostgresEnrollmentStore(db, m.logger),
		Users:         NewPostgresUserStore(db, m.bcryptCost, m.logger),
		Notifications: NewPostgresNotificationStore(db, m.logger),
	}
}

// Stores returns stores bound directly to the pool.
func (m *TxManager) Stores() store.Stores {
	return m.storesFor(m.db)
}

// WithinTx runs fn with stores bound to a fresh transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn store.UnitOfWork) error {
	return store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, m.storesFor(tx))
	})
}
