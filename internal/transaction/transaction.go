package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the dedup classification of an incoming transaction.
type Status string

const (
	StatusUnique Status = "unique"
	// StatusDuplicate matches a transaction already stored in the workspace.
	StatusDuplicate Status = "duplicate"
	// StatusDuplicateInBatch matches an earlier candidate of the same batch.
	StatusDuplicateInBatch Status = "duplicate_in_batch"
	// StatusUnfingerprintable has a date that could not be normalised.
	StatusUnfingerprintable Status = "unfingerprintable"
)

// Transaction is an imported transaction stored in a workspace.
type Transaction struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	Fingerprint    string
	Date           time.Time
	Amount         decimal.Decimal
	Reference      string
	AccountNumber  *int
	SeriesID       string
	VerificationID string
	CreatedAt      time.Time
}

// Match is a stored transaction carrying one of the looked-up fingerprints.
type Match struct {
	ID          uuid.UUID
	Fingerprint string
}
