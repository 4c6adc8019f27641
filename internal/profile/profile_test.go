package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

// fakeRepo is an in-memory Repository for resolver and activity tests.
type fakeRepo struct {
	users     map[string]*domain.User
	risks     map[string]*domain.RiskProfile
	directory map[string]*domain.DirectoryEntry

	liveCount int64
	histCount int64
	liveLast  *time.Time
	histLast  *time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     make(map[string]*domain.User),
		risks:     make(map[string]*domain.RiskProfile),
		directory: make(map[string]*domain.DirectoryEntry),
	}
}

func (f *fakeRepo) SaveUser(_ context.Context, u *domain.User) error {
	f.users[u.UPIID] = u
	return nil
}

func (f *fakeRepo) GetUserByUPI(_ context.Context, upiID string) (*domain.User, error) {
	u, ok := f.users[upiID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) SaveRiskProfile(_ context.Context, p *domain.RiskProfile) error {
	f.risks[p.UPIID] = p
	return nil
}

func (f *fakeRepo) GetRiskProfile(_ context.Context, upiID string) (*domain.RiskProfile, error) {
	p, ok := f.risks[upiID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) SaveTransaction(context.Context, *domain.Transaction) error { return nil }

func (f *fakeRepo) GetTransactionByRef(context.Context, string) (*domain.Transaction, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) CountTransactionsSince(context.Context, string, time.Time) (int64, error) {
	return f.liveCount, nil
}

func (f *fakeRepo) LastTransactionAt(context.Context, string) (*time.Time, error) {
	return f.liveLast, nil
}

func (f *fakeRepo) SaveDirectoryEntry(_ context.Context, e *domain.DirectoryEntry) error {
	f.directory[e.UPIID] = e
	return nil
}

func (f *fakeRepo) GetDirectoryEntry(_ context.Context, upiID string) (*domain.DirectoryEntry, error) {
	e, ok := f.directory[upiID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) SearchDirectory(context.Context, string, int) ([]*domain.DirectoryEntry, error) {
	return nil, nil
}

func (f *fakeRepo) SaveHistoryRecord(context.Context, *domain.HistoryRecord) error { return nil }

func (f *fakeRepo) CountHistorySince(context.Context, string, time.Time) (int64, error) {
	return f.histCount, nil
}

func (f *fakeRepo) LastHistoryAt(context.Context, string) (*time.Time, error) {
	return f.histLast, nil
}

func (f *fakeRepo) SaveAlert(context.Context, *domain.Alert) error { return nil }

func (f *fakeRepo) ListAlerts(context.Context, int) ([]*domain.Alert, error) { return nil, nil }

func (f *fakeRepo) Ping(context.Context) error { return nil }

func (f *fakeRepo) Close() error { return nil }

func TestResolveLiveWinsOverDirectory(t *testing.T) {
	repo := newFakeRepo()
	repo.users["rahul@safepay"] = &domain.User{
		UPIID:              "rahul@safepay",
		DisplayName:        "Rahul",
		VerificationStatus: domain.VerificationVerified,
		CreatedAt:          time.Now().Add(-2 * 365 * 24 * time.Hour),
	}
	repo.risks["rahul@safepay"] = &domain.RiskProfile{
		UPIID:      "rahul@safepay",
		TrustScore: 92,
		GeoFlag:    domain.GeoNormal,
	}
	// Conflicting directory record that must be ignored.
	repo.directory["rahul@safepay"] = &domain.DirectoryEntry{
		UPIID:       "rahul@safepay",
		TrustScore:  5,
		Blacklisted: true,
	}

	r := NewResolver(repo, nil, nil)
	prof, err := r.Resolve(context.Background(), "rahul@safepay", SourceLivePreferred)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if prof.Source != domain.SourceLive {
		t.Errorf("Source = %v, want live", prof.Source)
	}
	if prof.TrustScore != 92 {
		t.Errorf("TrustScore = %v, want live value 92", prof.TrustScore)
	}
	if prof.Blacklisted {
		t.Error("blacklist flag leaked from directory into live profile")
	}
	if prof.AccountAgeYears < 1.9 || prof.AccountAgeYears > 2.1 {
		t.Errorf("AccountAgeYears = %v, want ~2", prof.AccountAgeYears)
	}
}

func TestResolveLiveUserWithoutRiskProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.users["new@safepay"] = &domain.User{
		UPIID:     "new@safepay",
		CreatedAt: time.Now(),
	}

	r := NewResolver(repo, nil, nil)
	prof, err := r.Resolve(context.Background(), "new@safepay", SourceLivePreferred)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if prof.Source != domain.SourceDefault {
		t.Errorf("Source = %v, want default", prof.Source)
	}
	if prof.TrustScore != 50 {
		t.Errorf("TrustScore = %v, want neutral 50", prof.TrustScore)
	}
	if prof.FraudFlags != 0 || prof.FraudComplaints != 0 || prof.Blacklisted {
		t.Error("default profile should carry no risk signals")
	}
	if prof.GeoFlag != domain.GeoNormal {
		t.Errorf("GeoFlag = %v, want normal", prof.GeoFlag)
	}
}

func TestResolveDirectoryFallback(t *testing.T) {
	repo := newFakeRepo()
	repo.directory["merchant@oldbank"] = &domain.DirectoryEntry{
		UPIID:            "merchant@oldbank",
		TrustScore:       64,
		AccountAgeMonths: 18,
		GeoFlag:          domain.GeoUnusual,
	}

	r := NewResolver(repo, nil, nil)
	prof, err := r.Resolve(context.Background(), "merchant@oldbank", SourceLivePreferred)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if prof.Source != domain.SourceDirectory {
		t.Errorf("Source = %v, want directory", prof.Source)
	}
	if prof.AccountAgeYears != 1.5 {
		t.Errorf("AccountAgeYears = %v, want 1.5 from 18 months", prof.AccountAgeYears)
	}
	if prof.GeoFlag != domain.GeoUnusual {
		t.Errorf("GeoFlag = %v, want unusual", prof.GeoFlag)
	}
}

func TestResolveDirectoryOnlyIgnoresLive(t *testing.T) {
	repo := newFakeRepo()
	repo.users["both@safepay"] = &domain.User{UPIID: "both@safepay", CreatedAt: time.Now()}
	repo.risks["both@safepay"] = &domain.RiskProfile{UPIID: "both@safepay", TrustScore: 99}
	repo.directory["both@safepay"] = &domain.DirectoryEntry{UPIID: "both@safepay", TrustScore: 10}

	r := NewResolver(repo, nil, nil)
	prof, err := r.Resolve(context.Background(), "both@safepay", SourceDirectoryOnly)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if prof.Source != domain.SourceDirectory || prof.TrustScore != 10 {
		t.Errorf("directory-only resolve returned %+v", prof)
	}
}

func TestResolveUnknownRecipient(t *testing.T) {
	r := NewResolver(newFakeRepo(), nil, nil)

	_, err := r.Resolve(context.Background(), "ghost@nowhere", SourceLivePreferred)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}

	_, err = r.Resolve(context.Background(), "", SourceLivePreferred)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for empty id, got %v", err)
	}
}

func TestActivitySignalCombinesStores(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	liveLast := now.Add(-2 * time.Hour)
	histLast := now.Add(-8 * time.Hour)

	repo := newFakeRepo()
	repo.liveCount = 3
	repo.histCount = 4
	repo.liveLast = &liveLast
	repo.histLast = &histLast

	svc := NewActivityService(repo, nil)
	sig, err := svc.Signal(context.Background(), "busy@safepay", now)
	if err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if sig.Frequency24h != 7 {
		t.Errorf("Frequency24h = %d, want 7", sig.Frequency24h)
	}
	if sig.HoursSinceLast != 2 {
		t.Errorf("HoursSinceLast = %v, want 2 (most recent wins)", sig.HoursSinceLast)
	}
}

func TestActivitySignalDefaults(t *testing.T) {
	svc := NewActivityService(newFakeRepo(), nil)

	sig, err := svc.Signal(context.Background(), "quiet@safepay", time.Now())
	if err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if sig.Frequency24h != 0 {
		t.Errorf("Frequency24h = %d, want 0", sig.Frequency24h)
	}
	if sig.HoursSinceLast != 24 {
		t.Errorf("HoursSinceLast = %v, want default 24", sig.HoursSinceLast)
	}
}

func TestActivitySignalCapsSingleSourceRecency(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		liveIdle time.Duration
		histIdle time.Duration
		want     float64
	}{
		{"live-only party idle past a day", 28 * time.Hour, 0, 24},
		{"history-only party idle past a day", 0, 30 * time.Hour, 24},
		{"live-only party seen recently", 3 * time.Hour, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			if tt.liveIdle > 0 {
				last := now.Add(-tt.liveIdle)
				repo.liveLast = &last
			}
			if tt.histIdle > 0 {
				last := now.Add(-tt.histIdle)
				repo.histLast = &last
			}

			svc := NewActivityService(repo, nil)
			sig, err := svc.Signal(context.Background(), "lapsed@safepay", now)
			if err != nil {
				t.Fatalf("Signal failed: %v", err)
			}
			if sig.HoursSinceLast != tt.want {
				t.Errorf("HoursSinceLast = %v, want %v (absent source counts as 24h)", sig.HoursSinceLast, tt.want)
			}
		})
	}
}

func TestActivitySignalClampsClockSkew(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)

	repo := newFakeRepo()
	repo.liveLast = &future

	svc := NewActivityService(repo, nil)
	sig, err := svc.Signal(context.Background(), "skewed@safepay", now)
	if err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if sig.HoursSinceLast != 0 {
		t.Errorf("HoursSinceLast = %v, want clamp to 0", sig.HoursSinceLast)
	}
}
