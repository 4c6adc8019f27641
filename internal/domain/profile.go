// Package domain defines the core interfaces and types for SafePay.
package domain

import (
	"time"
)

// GeoFlag classifies a party's recent geographic behavior.
type GeoFlag string

const (
	GeoNormal   GeoFlag = "normal"
	GeoUnusual  GeoFlag = "unusual"
	GeoHighRisk GeoFlag = "high-risk"
)

// VerificationStatus is a party's account verification state.
type VerificationStatus string

const (
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationSuspended  VerificationStatus = "suspended"
	VerificationSuspicious VerificationStatus = "suspicious"
)

// Suspicious reports whether the status counts as the suspicious/suspended
// indicator in the feature vector and risk factors.
func (s VerificationStatus) Suspicious() bool {
	return s == VerificationSuspended || s == VerificationSuspicious
}

// ProfileSource identifies which store a resolved profile came from.
type ProfileSource string

const (
	SourceLive      ProfileSource = "live"
	SourceDirectory ProfileSource = "directory"
	SourceDefault   ProfileSource = "default"
)

// PartyProfile is the canonical resolved view of one account's risk
// attributes, merged from the live store and the historical directory.
// Built fresh per scoring call and never persisted.
type PartyProfile struct {
	UPIID              string             `json:"upiId"`
	DisplayName        string             `json:"displayName"`
	TrustScore         float64            `json:"trustScore"` // 0-100
	FraudFlags         int                `json:"fraudFlags"`
	FraudComplaints    int                `json:"fraudComplaints"`
	Blacklisted        bool               `json:"blacklisted"`
	GeoFlag            GeoFlag            `json:"geoFlag"`
	AccountAgeYears    float64            `json:"accountAgeYears"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	MerchantMismatch   bool               `json:"merchantMismatch"`
	RiskCategory       string             `json:"riskCategory,omitempty"`
	Source             ProfileSource      `json:"source"`
}

// ActivitySignal holds the time-windowed behavioral signals for a party,
// combined from the historical dataset and the live transactional store.
type ActivitySignal struct {
	Frequency24h   int     `json:"frequency24h"`
	HoursSinceLast float64 `json:"hoursSinceLast"`
}

// User is a live account record in the primary store.
type User struct {
	UPIID              string             `json:"upiId"`
	DisplayName        string             `json:"displayName"`
	Email              string             `json:"email,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	IsActive           bool               `json:"isActive"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// AccountAgeYears derives the account age from the creation timestamp.
func (u *User) AccountAgeYears() float64 {
	age := time.Since(u.CreatedAt).Hours() / (24 * 365)
	if age < 0 {
		return 0
	}
	return age
}

// RiskProfile is a live account's mutable risk record, 1:1 with User.
type RiskProfile struct {
	UPIID           string    `json:"upiId"`
	TrustScore      float64   `json:"trustScore"`
	FraudFlags      int       `json:"fraudFlags"`
	FraudComplaints int       `json:"fraudComplaints"`
	Blacklisted     bool      `json:"blacklisted"`
	GeoFlag         GeoFlag   `json:"geoFlag"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DirectoryEntry is a party's record in the historical batch directory.
// Field layout follows the batch dataset; account age is kept in months
// as recorded there.
type DirectoryEntry struct {
	UPIID              string             `json:"upiId"`
	DisplayName        string             `json:"displayName"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	Blacklisted        bool               `json:"blacklisted"`
	FraudFlags         int                `json:"pastFraudFlags"`
	FraudComplaints    int                `json:"fraudComplaintsCount"`
	AccountAgeMonths   int                `json:"accountAgeMonths"`
	TrustScore         float64            `json:"socialTrustScore"`
	GeoFlag            GeoFlag            `json:"geoLocationFlag"`
	MerchantMismatch   bool               `json:"merchantCategoryMismatch"`
	RiskCategory       string             `json:"riskCategory"`
}

// Profile converts a directory entry to the canonical resolved view.
func (d *DirectoryEntry) Profile() *PartyProfile {
	return &PartyProfile{
		UPIID:              d.UPIID,
		DisplayName:        d.DisplayName,
		TrustScore:         d.TrustScore,
		FraudFlags:         d.FraudFlags,
		FraudComplaints:    d.FraudComplaints,
		Blacklisted:        d.Blacklisted,
		GeoFlag:            d.GeoFlag,
		AccountAgeYears:    float64(d.AccountAgeMonths) / 12.0,
		VerificationStatus: d.VerificationStatus,
		MerchantMismatch:   d.MerchantMismatch,
		RiskCategory:       d.RiskCategory,
		Source:             SourceDirectory,
	}
}
