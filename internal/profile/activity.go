package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

const (
	// activityWindow is the lookback for transaction frequency.
	activityWindow = 24 * time.Hour

	// defaultHoursSinceLast applies when a party has no recorded
	// transactions at all; the model's training data treats a full day
	// of silence as neutral.
	defaultHoursSinceLast = 24.0
)

// ActivityService aggregates recent-activity signals from the live
// transaction store and the historical dataset.
type ActivityService struct {
	repo   domain.Repository
	logger *slog.Logger
}

// NewActivityService creates an activity aggregator.
func NewActivityService(repo domain.Repository, logger *slog.Logger) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Signal computes the recipient's 24h frequency and the hours since
// their most recent transaction. Frequency sums both stores; recency
// takes whichever source is fresher, with an absent source contributing
// the neutral default.
func (s *ActivityService) Signal(ctx context.Context, upiID string, now time.Time) (domain.ActivitySignal, error) {
	since := now.Add(-activityWindow)

	liveCount, err := s.repo.CountTransactionsSince(ctx, upiID, since)
	if err != nil {
		return domain.ActivitySignal{}, fmt.Errorf("counting live transactions for %s: %w", upiID, err)
	}
	histCount, err := s.repo.CountHistorySince(ctx, upiID, since)
	if err != nil {
		return domain.ActivitySignal{}, fmt.Errorf("counting historical transactions for %s: %w", upiID, err)
	}

	liveLast, err := s.repo.LastTransactionAt(ctx, upiID)
	if err != nil {
		return domain.ActivitySignal{}, fmt.Errorf("finding last live transaction for %s: %w", upiID, err)
	}
	histLast, err := s.repo.LastHistoryAt(ctx, upiID)
	if err != nil {
		return domain.ActivitySignal{}, fmt.Errorf("finding last historical transaction for %s: %w", upiID, err)
	}

	// A source with no record counts as the neutral default, so one
	// store's long silence can never push recency past 24h on its own.
	liveHours := defaultHoursSinceLast
	if liveLast != nil {
		liveHours = hoursSince(now, *liveLast)
	}
	histHours := defaultHoursSinceLast
	if histLast != nil {
		histHours = hoursSince(now, *histLast)
	}

	return domain.ActivitySignal{
		Frequency24h:   int(liveCount + histCount),
		HoursSinceLast: min(liveHours, histHours),
	}, nil
}

// hoursSince clamps at zero so clock skew between stores can never
// produce a negative recency.
func hoursSince(now, last time.Time) float64 {
	h := now.Sub(last).Hours()
	if h < 0 {
		return 0
	}
	return h
}
