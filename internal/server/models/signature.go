package models

import "time"

// Signature is the historical record of one owner-stamped placement.
type Signature struct {
	ID         string
	DocumentID string
	UserID     string
	Type       FieldType
	Content    string
	FontStyle  *string
	FontSize   float64
	X          float64
	Y          float64
	Page       int
	CreatedAt  time.Time
}
