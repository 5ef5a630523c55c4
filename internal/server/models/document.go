// Package models defines server-side data models persisted in the database.
package models

import "time"

// Document is an uploaded PDF. Path and SignedPath are storage keys;
// SignedPath stays nil until a stamping pass has completed.
type Document struct {
	ID           string
	OwnerID      string
	FileName     string
	OriginalName string
	Path         string
	Size         int64
	SignedPath   *string
	UploadedAt   time.Time
}

// BelongsTo reports whether userID owns the document.
func (d *Document) BelongsTo(userID string) bool {
	return d != nil && userID != "" && d.OwnerID == userID
}
