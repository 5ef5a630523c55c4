package models

import "time"

// AuditEntry is an immutable log record. UserID is nil for external signers.
// UserName and UserEmail are filled on read from the users table.
type AuditEntry struct {
	ID         string
	DocumentID string
	UserID     *string
	UserName   *string
	UserEmail  *string
	Action     string
	IP         string
	Timestamp  time.Time
}
