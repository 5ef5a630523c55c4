package models

import "time"

// User is an account holder. Accounts are managed outside this service;
// only the fields needed for invitations are read.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
