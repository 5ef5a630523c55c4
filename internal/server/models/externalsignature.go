package models

import "time"

// ExternalStatus is the lifecycle state of an invitation.
type ExternalStatus string

const (
	StatusPending  ExternalStatus = "pending"
	StatusSent     ExternalStatus = "sent"
	StatusSigned   ExternalStatus = "signed"
	StatusExpired  ExternalStatus = "expired"
	StatusRejected ExternalStatus = "rejected"
)

// Live reports whether the status still accepts sign/reject.
func (s ExternalStatus) Live() bool {
	return s == StatusPending || s == StatusSent
}

// Final reports whether no transition at all leaves the status.
func (s ExternalStatus) Final() bool {
	return s == StatusSigned || s == StatusRejected
}

// ExternalSignature is an invitation for a non-account holder to sign one
// document. TokenHash is the digest of the bearer token; the token itself
// is never stored.
type ExternalSignature struct {
	ID              string
	DocumentID      string
	RequesterID     string
	SignerEmail     string
	SignerName      string
	TokenHash       string
	Status          ExternalStatus
	RejectionReason *string
	Fields          []ExternalField
	ExpiresAt       time.Time
	SignedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExpiredAt reports whether the link validity window has passed at now.
func (e *ExternalSignature) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// EffectiveStatus is the status a reader should see at now, without
// mutating stored state: live requests past their expiry read as expired.
func (e *ExternalSignature) EffectiveStatus(now time.Time) ExternalStatus {
	if e.Status.Live() && e.ExpiredAt(now) {
		return StatusExpired
	}
	return e.Status
}

// ExternalRequestView is a requester-facing row with the document name joined in.
type ExternalRequestView struct {
	ExternalSignature
	DocumentName string
	UploadedAt   time.Time
}
