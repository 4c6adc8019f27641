package repository

// Schema definitions for the SafePay stores.
// Compatible with both SQLite and PostgreSQL.

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    upi_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    email TEXT,
    verification_status TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);
`

const schemaRiskProfiles = `
CREATE TABLE IF NOT EXISTS risk_profiles (
    upi_id TEXT PRIMARY KEY,
    trust_score REAL NOT NULL,
    fraud_flags INTEGER NOT NULL DEFAULT 0,
    fraud_complaints INTEGER NOT NULL DEFAULT 0,
    blacklisted INTEGER NOT NULL DEFAULT 0,
    geo_flag TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    ref TEXT PRIMARY KEY,
    sender_upi_id TEXT NOT NULL,
    receiver_upi_id TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL,
    fraud_score REAL NOT NULL,
    is_fraud INTEGER NOT NULL DEFAULT 0,
    risk_factors TEXT,
    failure_reason TEXT,
    created_at TIMESTAMP NOT NULL,
    processed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_upi_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_upi_id, created_at);
`

const schemaDirectory = `
CREATE TABLE IF NOT EXISTS directory (
    upi_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    verification_status TEXT NOT NULL,
    blacklisted INTEGER NOT NULL DEFAULT 0,
    past_fraud_flags INTEGER NOT NULL DEFAULT 0,
    fraud_complaints_count INTEGER NOT NULL DEFAULT 0,
    account_age_months INTEGER NOT NULL DEFAULT 0,
    social_trust_score REAL NOT NULL,
    geo_location_flag TEXT NOT NULL,
    merchant_category_mismatch INTEGER NOT NULL DEFAULT 0,
    risk_category TEXT
);

CREATE INDEX IF NOT EXISTS idx_directory_name ON directory(display_name);
`

const schemaHistory = `
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY,
    sender_upi_id TEXT NOT NULL,
    receiver_upi_id TEXT NOT NULL,
    amount REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_receiver ON history(receiver_upi_id, timestamp);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    transaction_ref TEXT NOT NULL,
    alert_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaUsers,
		schemaRiskProfiles,
		schemaTransactions,
		schemaDirectory,
		schemaHistory,
		schemaAlerts,
	}
}
