package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence: the live primary
// store (users, risk profiles, ledger, alerts) and the historical batch
// store (directory, history). Both are read by the scoring pipeline; only
// the live side is written per request.
type Repository interface {
	// Live accounts
	SaveUser(ctx context.Context, user *User) error
	GetUserByUPI(ctx context.Context, upiID string) (*User, error)
	SaveRiskProfile(ctx context.Context, profile *RiskProfile) error
	GetRiskProfile(ctx context.Context, upiID string) (*RiskProfile, error)

	// Live transaction ledger
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByRef(ctx context.Context, ref string) (*Transaction, error)
	CountTransactionsSince(ctx context.Context, upiID string, since time.Time) (int64, error)
	LastTransactionAt(ctx context.Context, upiID string) (*time.Time, error)

	// Historical batch directory and transaction log
	SaveDirectoryEntry(ctx context.Context, entry *DirectoryEntry) error
	GetDirectoryEntry(ctx context.Context, upiID string) (*DirectoryEntry, error)
	SearchDirectory(ctx context.Context, query string, limit int) ([]*DirectoryEntry, error)
	SaveHistoryRecord(ctx context.Context, rec *HistoryRecord) error
	CountHistorySince(ctx context.Context, upiID string, since time.Time) (int64, error)
	LastHistoryAt(ctx context.Context, upiID string) (*time.Time, error)

	// Fraud alerts
	SaveAlert(ctx context.Context, alert *Alert) error
	ListAlerts(ctx context.Context, limit int) ([]*Alert, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
