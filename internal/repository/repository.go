// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveUser inserts or updates a live account record.
func (r *SQLRepository) SaveUser(ctx context.Context, user *domain.User) error {
	if user.UPIID == "" {
		return fmt.Errorf("%w: upi_id is required", domain.ErrValidation)
	}

	query := `
		INSERT INTO users (upi_id, display_name, email, verification_status, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (upi_id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			verification_status = excluded.verification_status,
			is_active = excluded.is_active
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		user.UPIID, user.DisplayName, user.Email,
		string(user.VerificationStatus), boolInt(user.IsActive), user.CreatedAt,
	)
	return err
}

// GetUserByUPI retrieves a live account by UPI ID.
func (r *SQLRepository) GetUserByUPI(ctx context.Context, upiID string) (*domain.User, error) {
	query := `
		SELECT upi_id, display_name, email, verification_status, is_active, created_at
		FROM users
		WHERE upi_id = ?
	`

	var user domain.User
	var status string
	var active int

	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID).Scan(
		&user.UPIID, &user.DisplayName, &user.Email, &status, &active, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.VerificationStatus = domain.VerificationStatus(status)
	user.IsActive = active != 0
	return &user, nil
}

// SaveRiskProfile inserts or updates a live risk profile.
func (r *SQLRepository) SaveRiskProfile(ctx context.Context, profile *domain.RiskProfile) error {
	if profile.UPIID == "" {
		return fmt.Errorf("%w: upi_id is required", domain.ErrValidation)
	}

	query := `
		INSERT INTO risk_profiles (upi_id, trust_score, fraud_flags, fraud_complaints, blacklisted, geo_flag, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (upi_id) DO UPDATE SET
			trust_score = excluded.trust_score,
			fraud_flags = excluded.fraud_flags,
			fraud_complaints = excluded.fraud_complaints,
			blacklisted = excluded.blacklisted,
			geo_flag = excluded.geo_flag,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		profile.UPIID, profile.TrustScore, profile.FraudFlags, profile.FraudComplaints,
		boolInt(profile.Blacklisted), string(profile.GeoFlag), profile.UpdatedAt,
	)
	return err
}

// GetRiskProfile retrieves a live risk profile by UPI ID.
func (r *SQLRepository) GetRiskProfile(ctx context.Context, upiID string) (*domain.RiskProfile, error) {
	query := `
		SELECT upi_id, trust_score, fraud_flags, fraud_complaints, blacklisted, geo_flag, updated_at
		FROM risk_profiles
		WHERE upi_id = ?
	`

	var p domain.RiskProfile
	var blacklisted int
	var geo string

	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID).Scan(
		&p.UPIID, &p.TrustScore, &p.FraudFlags, &p.FraudComplaints,
		&blacklisted, &geo, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Blacklisted = blacklisted != 0
	p.GeoFlag = domain.GeoFlag(geo)
	return &p, nil
}

// SaveTransaction stores a scored ledger record.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.Ref == "" {
		return fmt.Errorf("%w: transaction ref is required", domain.ErrValidation)
	}

	factors, _ := json.Marshal(tx.RiskFactors)

	query := `
		INSERT INTO transactions (
			ref, sender_upi_id, receiver_upi_id, amount, currency, description,
			status, fraud_score, is_fraud, risk_factors, failure_reason,
			created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.Ref, tx.SenderUPIID, tx.ReceiverUPIID,
		tx.Amount, tx.Currency, tx.Description,
		string(tx.Status), tx.FraudScore, boolInt(tx.IsFraud),
		string(factors), tx.FailureReason,
		tx.CreatedAt, tx.ProcessedAt,
	)
	return err
}

// GetTransactionByRef retrieves a ledger record by reference.
func (r *SQLRepository) GetTransactionByRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	query := `
		SELECT ref, sender_upi_id, receiver_upi_id, amount, currency, description,
			   status, fraud_score, is_fraud, risk_factors, failure_reason,
			   created_at, processed_at
		FROM transactions
		WHERE ref = ?
	`

	var tx domain.Transaction
	var status, factors string
	var isFraud int
	var failureReason sql.NullString
	var processedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, r.rebind(query), ref).Scan(
		&tx.Ref, &tx.SenderUPIID, &tx.ReceiverUPIID,
		&tx.Amount, &tx.Currency, &tx.Description,
		&status, &tx.FraudScore, &isFraud,
		&factors, &failureReason,
		&tx.CreatedAt, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tx.Status = domain.TransactionStatus(status)
	tx.IsFraud = isFraud != 0
	if factors != "" {
		json.Unmarshal([]byte(factors), &tx.RiskFactors)
	}
	if failureReason.Valid {
		tx.FailureReason = failureReason.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		tx.ProcessedAt = &t
	}
	return &tx, nil
}

// CountTransactionsSince counts live ledger rows touching a party since
// the given time.
func (r *SQLRepository) CountTransactionsSince(ctx context.Context, upiID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE (sender_upi_id = ? OR receiver_upi_id = ?)
		AND created_at >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID, upiID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// LastTransactionAt returns the timestamp of the party's most recent
// ledger row, or nil when none exists.
func (r *SQLRepository) LastTransactionAt(ctx context.Context, upiID string) (*time.Time, error) {
	query := `
		SELECT created_at FROM transactions
		WHERE sender_upi_id = ? OR receiver_upi_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var ts time.Time
	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID, upiID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// SaveDirectoryEntry inserts or updates a historical directory record.
func (r *SQLRepository) SaveDirectoryEntry(ctx context.Context, entry *domain.DirectoryEntry) error {
	if entry.UPIID == "" {
		return fmt.Errorf("%w: upi_id is required", domain.ErrValidation)
	}

	query := `
		INSERT INTO directory (
			upi_id, display_name, verification_status, blacklisted,
			past_fraud_flags, fraud_complaints_count, account_age_months,
			social_trust_score, geo_location_flag, merchant_category_mismatch,
			risk_category
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (upi_id) DO UPDATE SET
			display_name = excluded.display_name,
			verification_status = excluded.verification_status,
			blacklisted = excluded.blacklisted,
			past_fraud_flags = excluded.past_fraud_flags,
			fraud_complaints_count = excluded.fraud_complaints_count,
			account_age_months = excluded.account_age_months,
			social_trust_score = excluded.social_trust_score,
			geo_location_flag = excluded.geo_location_flag,
			merchant_category_mismatch = excluded.merchant_category_mismatch,
			risk_category = excluded.risk_category
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entry.UPIID, entry.DisplayName, string(entry.VerificationStatus),
		boolInt(entry.Blacklisted), entry.FraudFlags, entry.FraudComplaints,
		entry.AccountAgeMonths, entry.TrustScore, string(entry.GeoFlag),
		boolInt(entry.MerchantMismatch), entry.RiskCategory,
	)
	return err
}

// GetDirectoryEntry retrieves a historical directory record by UPI ID.
func (r *SQLRepository) GetDirectoryEntry(ctx context.Context, upiID string) (*domain.DirectoryEntry, error) {
	query := `
		SELECT upi_id, display_name, verification_status, blacklisted,
			   past_fraud_flags, fraud_complaints_count, account_age_months,
			   social_trust_score, geo_location_flag, merchant_category_mismatch,
			   risk_category
		FROM directory
		WHERE upi_id = ?
	`

	entry, err := scanDirectoryEntry(r.db.QueryRowContext(ctx, r.rebind(query), upiID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SearchDirectory finds directory records whose UPI ID or display name
// contains the query string.
func (r *SQLRepository) SearchDirectory(ctx context.Context, q string, limit int) ([]*domain.DirectoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT upi_id, display_name, verification_status, blacklisted,
			   past_fraud_flags, fraud_complaints_count, account_age_months,
			   social_trust_score, geo_location_flag, merchant_category_mismatch,
			   risk_category
		FROM directory
		WHERE upi_id LIKE ? OR display_name LIKE ?
		ORDER BY upi_id
		LIMIT ?
	`

	pattern := "%" + q + "%"
	rows, err := r.db.QueryContext(ctx, r.rebind(query), pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.DirectoryEntry
	for rows.Next() {
		entry, err := scanDirectoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDirectoryEntry(row rowScanner) (*domain.DirectoryEntry, error) {
	var e domain.DirectoryEntry
	var status, geo string
	var blacklisted, mismatch int
	var riskCategory sql.NullString

	err := row.Scan(
		&e.UPIID, &e.DisplayName, &status, &blacklisted,
		&e.FraudFlags, &e.FraudComplaints, &e.AccountAgeMonths,
		&e.TrustScore, &geo, &mismatch, &riskCategory,
	)
	if err != nil {
		return nil, err
	}

	e.VerificationStatus = domain.VerificationStatus(status)
	e.Blacklisted = blacklisted != 0
	e.GeoFlag = domain.GeoFlag(geo)
	e.MerchantMismatch = mismatch != 0
	if riskCategory.Valid {
		e.RiskCategory = riskCategory.String
	}
	return &e, nil
}

// SaveHistoryRecord appends a row to the historical transaction log.
func (r *SQLRepository) SaveHistoryRecord(ctx context.Context, rec *domain.HistoryRecord) error {
	query := `
		INSERT INTO history (sender_upi_id, receiver_upi_id, amount, timestamp)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.SenderUPIID, rec.ReceiverUPIID, rec.Amount, rec.Timestamp,
	)
	return err
}

// CountHistorySince counts historical rows touching a party since the
// given time.
func (r *SQLRepository) CountHistorySince(ctx context.Context, upiID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM history
		WHERE (sender_upi_id = ? OR receiver_upi_id = ?)
		AND timestamp >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID, upiID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// LastHistoryAt returns the timestamp of the party's most recent
// historical row, or nil when none exists.
func (r *SQLRepository) LastHistoryAt(ctx context.Context, upiID string) (*time.Time, error) {
	query := `
		SELECT timestamp FROM history
		WHERE sender_upi_id = ? OR receiver_upi_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var ts time.Time
	err := r.db.QueryRowContext(ctx, r.rebind(query), upiID, upiID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// SaveAlert stores a fraud alert.
func (r *SQLRepository) SaveAlert(ctx context.Context, alert *domain.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("%w: alert id is required", domain.ErrValidation)
	}

	query := `
		INSERT INTO alerts (id, transaction_ref, alert_type, severity, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, alert.TransactionRef, alert.AlertType,
		string(alert.Severity), alert.Description, alert.CreatedAt,
	)
	return err
}

// ListAlerts returns the most recent alerts.
func (r *SQLRepository) ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, transaction_ref, alert_type, severity, description, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		var severity string
		if err := rows.Scan(&a.ID, &a.TransactionRef, &a.AlertType, &severity, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Severity = domain.AlertSeverity(severity)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
