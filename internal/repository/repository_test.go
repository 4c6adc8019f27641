package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "safepay-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetUser", func(t *testing.T) {
		user := &domain.User{
			UPIID:              "asha@safepay",
			DisplayName:        "Asha",
			Email:              "asha@example.com",
			VerificationStatus: domain.VerificationVerified,
			IsActive:           true,
			CreatedAt:          time.Now().UTC().Add(-365 * 24 * time.Hour),
		}

		if err := repo.SaveUser(ctx, user); err != nil {
			t.Fatalf("SaveUser failed: %v", err)
		}

		retrieved, err := repo.GetUserByUPI(ctx, user.UPIID)
		if err != nil {
			t.Fatalf("GetUserByUPI failed: %v", err)
		}
		if retrieved.DisplayName != user.DisplayName {
			t.Errorf("expected DisplayName %s, got %s", user.DisplayName, retrieved.DisplayName)
		}
		if retrieved.VerificationStatus != domain.VerificationVerified {
			t.Errorf("expected verified status, got %s", retrieved.VerificationStatus)
		}
		if !retrieved.IsActive {
			t.Error("expected active user")
		}
	})

	t.Run("UpsertUser", func(t *testing.T) {
		user := &domain.User{
			UPIID:              "asha@safepay",
			DisplayName:        "Asha K",
			VerificationStatus: domain.VerificationSuspended,
			CreatedAt:          time.Now().UTC(),
		}
		if err := repo.SaveUser(ctx, user); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		retrieved, err := repo.GetUserByUPI(ctx, user.UPIID)
		if err != nil {
			t.Fatalf("GetUserByUPI failed: %v", err)
		}
		if retrieved.DisplayName != "Asha K" {
			t.Errorf("upsert did not update display name: %s", retrieved.DisplayName)
		}
	})

	t.Run("SaveAndGetRiskProfile", func(t *testing.T) {
		p := &domain.RiskProfile{
			UPIID:           "asha@safepay",
			TrustScore:      72.5,
			FraudFlags:      1,
			FraudComplaints: 2,
			Blacklisted:     false,
			GeoFlag:         domain.GeoNormal,
			UpdatedAt:       time.Now().UTC(),
		}

		if err := repo.SaveRiskProfile(ctx, p); err != nil {
			t.Fatalf("SaveRiskProfile failed: %v", err)
		}

		retrieved, err := repo.GetRiskProfile(ctx, p.UPIID)
		if err != nil {
			t.Fatalf("GetRiskProfile failed: %v", err)
		}
		if retrieved.TrustScore != 72.5 {
			t.Errorf("expected TrustScore 72.5, got %v", retrieved.TrustScore)
		}
		if retrieved.FraudComplaints != 2 {
			t.Errorf("expected 2 complaints, got %d", retrieved.FraudComplaints)
		}
		if retrieved.GeoFlag != domain.GeoNormal {
			t.Errorf("expected normal geo flag, got %s", retrieved.GeoFlag)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		processed := time.Now().UTC()
		tx := &domain.Transaction{
			Ref:           "TXN-001",
			SenderUPIID:   "asha@safepay",
			ReceiverUPIID: "shop@safepay",
			Amount:        1250.50,
			Currency:      "INR",
			Description:   "groceries",
			Status:        domain.StatusCompleted,
			FraudScore:    4.2,
			IsFraud:       false,
			RiskFactors:   nil,
			CreatedAt:     time.Now().UTC(),
			ProcessedAt:   &processed,
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransactionByRef(ctx, tx.Ref)
		if err != nil {
			t.Fatalf("GetTransactionByRef failed: %v", err)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if retrieved.Status != domain.StatusCompleted {
			t.Errorf("expected completed, got %s", retrieved.Status)
		}
		if retrieved.ProcessedAt == nil {
			t.Error("expected ProcessedAt to round-trip")
		}
	})

	t.Run("BlockedTransactionRiskFactors", func(t *testing.T) {
		tx := &domain.Transaction{
			Ref:           "TXN-002",
			SenderUPIID:   "asha@safepay",
			ReceiverUPIID: "scam@safepay",
			Amount:        99999,
			Currency:      "INR",
			Status:        domain.StatusBlocked,
			FraudScore:    91.7,
			IsFraud:       true,
			RiskFactors:   []string{"Recipient is on blacklist", "High transaction amount"},
			FailureReason: "Transaction blocked due to fraud risk",
			CreatedAt:     time.Now().UTC(),
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransactionByRef(ctx, tx.Ref)
		if err != nil {
			t.Fatalf("GetTransactionByRef failed: %v", err)
		}
		if !retrieved.IsFraud {
			t.Error("expected fraud flag to round-trip")
		}
		if len(retrieved.RiskFactors) != 2 {
			t.Errorf("expected 2 risk factors, got %v", retrieved.RiskFactors)
		}
		if retrieved.FailureReason == "" {
			t.Error("expected failure reason to round-trip")
		}
	})

	t.Run("ActivityQueries", func(t *testing.T) {
		since := time.Now().UTC().Add(-24 * time.Hour)

		count, err := repo.CountTransactionsSince(ctx, "asha@safepay", since)
		if err != nil {
			t.Fatalf("CountTransactionsSince failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 transactions, got %d", count)
		}

		last, err := repo.LastTransactionAt(ctx, "asha@safepay")
		if err != nil {
			t.Fatalf("LastTransactionAt failed: %v", err)
		}
		if last == nil {
			t.Fatal("expected a last-transaction timestamp")
		}

		last, err = repo.LastTransactionAt(ctx, "nobody@safepay")
		if err != nil {
			t.Fatalf("LastTransactionAt failed: %v", err)
		}
		if last != nil {
			t.Errorf("expected nil for unknown party, got %v", last)
		}
	})

	t.Run("DirectoryRoundTrip", func(t *testing.T) {
		entry := &domain.DirectoryEntry{
			UPIID:              "merchant@oldbank",
			DisplayName:        "Old Bank Merchant",
			VerificationStatus: domain.VerificationVerified,
			Blacklisted:        false,
			FraudFlags:         0,
			FraudComplaints:    1,
			AccountAgeMonths:   30,
			TrustScore:         68.4,
			GeoFlag:            domain.GeoNormal,
			MerchantMismatch:   true,
			RiskCategory:       "retail",
		}

		if err := repo.SaveDirectoryEntry(ctx, entry); err != nil {
			t.Fatalf("SaveDirectoryEntry failed: %v", err)
		}

		retrieved, err := repo.GetDirectoryEntry(ctx, entry.UPIID)
		if err != nil {
			t.Fatalf("GetDirectoryEntry failed: %v", err)
		}
		if retrieved.AccountAgeMonths != 30 {
			t.Errorf("expected 30 months, got %d", retrieved.AccountAgeMonths)
		}
		if !retrieved.MerchantMismatch {
			t.Error("expected merchant mismatch to round-trip")
		}
		if retrieved.RiskCategory != "retail" {
			t.Errorf("expected risk category retail, got %s", retrieved.RiskCategory)
		}
	})

	t.Run("SearchDirectory", func(t *testing.T) {
		results, err := repo.SearchDirectory(ctx, "oldbank", 10)
		if err != nil {
			t.Fatalf("SearchDirectory failed: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].UPIID != "merchant@oldbank" {
			t.Errorf("unexpected result: %s", results[0].UPIID)
		}

		results, err = repo.SearchDirectory(ctx, "no-such-party", 10)
		if err != nil {
			t.Fatalf("SearchDirectory failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})

	t.Run("HistoryQueries", func(t *testing.T) {
		recent := &domain.HistoryRecord{
			SenderUPIID:   "payer@oldbank",
			ReceiverUPIID: "merchant@oldbank",
			Amount:        400,
			Timestamp:     time.Now().UTC().Add(-3 * time.Hour),
		}
		stale := &domain.HistoryRecord{
			SenderUPIID:   "payer@oldbank",
			ReceiverUPIID: "merchant@oldbank",
			Amount:        900,
			Timestamp:     time.Now().UTC().Add(-72 * time.Hour),
		}
		for _, rec := range []*domain.HistoryRecord{recent, stale} {
			if err := repo.SaveHistoryRecord(ctx, rec); err != nil {
				t.Fatalf("SaveHistoryRecord failed: %v", err)
			}
		}

		since := time.Now().UTC().Add(-24 * time.Hour)
		count, err := repo.CountHistorySince(ctx, "merchant@oldbank", since)
		if err != nil {
			t.Fatalf("CountHistorySince failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 recent record, got %d", count)
		}

		last, err := repo.LastHistoryAt(ctx, "merchant@oldbank")
		if err != nil {
			t.Fatalf("LastHistoryAt failed: %v", err)
		}
		if last == nil {
			t.Fatal("expected a last-history timestamp")
		}
	})

	t.Run("AlertsRoundTrip", func(t *testing.T) {
		alert := &domain.Alert{
			ID:             "alert-001",
			TransactionRef: "TXN-002",
			AlertType:      "fraud_block",
			Severity:       domain.SeverityHigh,
			Description:    "blocked high-risk transfer",
			CreatedAt:      time.Now().UTC(),
		}

		if err := repo.SaveAlert(ctx, alert); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}

		alerts, err := repo.ListAlerts(ctx, 10)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].Severity != domain.SeverityHigh {
			t.Errorf("expected high severity, got %s", alerts[0].Severity)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetUserByUPI(ctx, "ghost@safepay"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetRiskProfile(ctx, "ghost@safepay"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetTransactionByRef(ctx, "TXN-MISSING"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetDirectoryEntry(ctx, "ghost@oldbank"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
