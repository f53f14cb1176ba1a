package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrVersionConflict     = errors.New("transaction version conflict")
)

// Transaction is a recorded transfer intent between two accounts.
type Transaction struct {
	ID              uuid.UUID        `json:"id"`
	FromAccount     string           `json:"fromAccount"`
	ToAccount       string           `json:"toAccount"`
	Amount          float64          `json:"amount"`
	Created         time.Time        `json:"created"`
	State           TransactionState `json:"state"`
	LastStateUpdate *time.Time       `json:"lastStateUpdate"`
	Version         int              `json:"version"`
}

// TransactionCandidate holds the client supplied fields of a new transaction.
// Server owned fields are absent so they can never be taken from a request.
type TransactionCandidate struct {
	FromAccount string           `json:"fromAccount" validate:"required,min=2,max=255"`
	ToAccount   string           `json:"toAccount" validate:"required,min=2,max=255"`
	Amount      float64          `json:"amount"`
	State       TransactionState `json:"state" validate:"transaction_state"`
}

// StateUpdate describes one accepted state-update call. ExpectedVersion is nil
// for last-writer-wins updates.
type StateUpdate struct {
	ID              uuid.UUID
	State           TransactionState
	At              time.Time
	ExpectedVersion *int
}
