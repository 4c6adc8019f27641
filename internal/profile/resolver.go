// Package profile resolves recipient profiles and recent-activity
// signals from the live account store and the static directory.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

const (
	// Safe-default trust used when a live user exists without a risk
	// profile row, e.g. an account provisioned moments ago.
	defaultTrustScore = 50.0

	// The historical directory is immutable after load, so a short TTL
	// just bounds memory, not staleness.
	directoryCacheTTL = 10 * time.Minute
)

// Source selects where the resolver looks first.
type Source int

const (
	// SourceLivePreferred tries the live account store first and falls
	// back to the directory.
	SourceLivePreferred Source = iota
	// SourceDirectoryOnly consults only the static directory.
	SourceDirectoryOnly
)

// Resolver assembles a PartyProfile for a recipient UPI ID.
type Resolver struct {
	repo   domain.Repository
	cache  domain.Cache
	logger *slog.Logger
}

// NewResolver creates a profile resolver. cache may be nil to disable
// directory-entry caching.
func NewResolver(repo domain.Repository, cache domain.Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, cache: cache, logger: logger}
}

// Resolve returns the recipient's profile. Live account data, when
// present, wins wholesale over the directory: the two sources are never
// field-merged. A recipient known to neither source yields
// domain.ErrProfileNotFound.
func (r *Resolver) Resolve(ctx context.Context, upiID string, source Source) (*domain.PartyProfile, error) {
	if upiID == "" {
		return nil, fmt.Errorf("%w: upi_id is required", domain.ErrValidation)
	}

	if source == SourceLivePreferred {
		prof, err := r.resolveLive(ctx, upiID)
		if err != nil {
			return nil, err
		}
		if prof != nil {
			return prof, nil
		}
	}

	return r.resolveDirectory(ctx, upiID)
}

// resolveLive builds a profile from the users and risk_profiles tables.
// Returns (nil, nil) when the user does not exist.
func (r *Resolver) resolveLive(ctx context.Context, upiID string) (*domain.PartyProfile, error) {
	user, err := r.repo.GetUserByUPI(ctx, upiID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up user %s: %w", upiID, err)
	}

	prof := &domain.PartyProfile{
		UPIID:              user.UPIID,
		DisplayName:        user.DisplayName,
		AccountAgeYears:    user.AccountAgeYears(),
		VerificationStatus: user.VerificationStatus,
		Source:             domain.SourceLive,
	}

	risk, err := r.repo.GetRiskProfile(ctx, upiID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return nil, fmt.Errorf("looking up risk profile %s: %w", upiID, err)
		}
		// Known account, no risk row yet: score with neutral attributes
		// rather than rejecting the payment.
		r.logger.Warn("no risk profile for live user, using defaults", "upi_id", upiID)
		prof.TrustScore = defaultTrustScore
		prof.GeoFlag = domain.GeoNormal
		prof.Source = domain.SourceDefault
		return prof, nil
	}

	prof.TrustScore = risk.TrustScore
	prof.FraudFlags = risk.FraudFlags
	prof.FraudComplaints = risk.FraudComplaints
	prof.Blacklisted = risk.Blacklisted
	prof.GeoFlag = risk.GeoFlag
	return prof, nil
}

// resolveDirectory looks the recipient up in the static directory,
// consulting the cache first.
func (r *Resolver) resolveDirectory(ctx context.Context, upiID string) (*domain.PartyProfile, error) {
	if r.cache != nil {
		if entry, err := r.cache.GetDirectoryEntry(ctx, upiID); err == nil && entry != nil {
			return entry.Profile(), nil
		}
	}

	entry, err := r.repo.GetDirectoryEntry(ctx, upiID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, fmt.Errorf("recipient %s: %w", upiID, domain.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("looking up directory entry %s: %w", upiID, err)
	}

	if r.cache != nil {
		if err := r.cache.SetDirectoryEntry(ctx, upiID, entry, directoryCacheTTL); err != nil {
			r.logger.Warn("failed to cache directory entry", "upi_id", upiID, "error", err)
		}
	}

	return entry.Profile(), nil
}
