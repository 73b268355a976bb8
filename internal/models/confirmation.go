package models

import "time"

// DeleteConfirmation is the server-side half of a two-phase delete. The
// signed token handed to the client names it by ID.
type DeleteConfirmation struct {
	ID             string     `json:"id"`
	Collection     Collection `json:"collection"`
	RecordID       int64      `json:"record_id"`
	StudentID      int64      `json:"student_id"`
	CredentialHash string     `json:"credential_hash"`
	ExpiresAt      time.Time  `json:"expires_at"`
}
