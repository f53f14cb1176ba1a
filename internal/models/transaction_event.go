package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionEventNewState        = "new"
	TransactionEventProcessingState = "processing"
	TransactionEventFinishedState   = "finished"
	TransactionEventFailedState     = "failed"
)

const (
	TransactionCreatedEventName      = "transaction_created"
	TransactionStateUpdatedEventName = "transaction_state_updated"
)

// TransactionEvent is an outbox row describing a lifecycle change.
type TransactionEvent struct {
	UUID      uuid.UUID             `json:"uuid"`
	State     string                `json:"state"`
	Name      string                `json:"name"`
	Meta      *TransactionEventMeta `json:"meta"`
	CreatedAt time.Time             `json:"created_at"`
}

type TransactionEventMeta struct {
	TransactionID uuid.UUID        `json:"transaction_id"`
	FromAccount   string           `json:"from_account"`
	ToAccount     string           `json:"to_account"`
	Amount        float64          `json:"amount"`
	State         TransactionState `json:"state"`
	Version       int              `json:"version"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

func NewTransactionEvent(name string, t *Transaction, at time.Time) (*TransactionEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("models/transaction_event: generate uuid error %w", err)
	}

	return &TransactionEvent{
		UUID:  id,
		State: TransactionEventNewState,
		Name:  name,
		Meta: &TransactionEventMeta{
			TransactionID: t.ID,
			FromAccount:   t.FromAccount,
			ToAccount:     t.ToAccount,
			Amount:        t.Amount,
			State:         t.State,
			Version:       t.Version,
			OccurredAt:    at,
		},
		CreatedAt: at,
	}, nil
}

func (m *TransactionEventMeta) Scan(value interface{}) error {
	if value == nil {
		*m = TransactionEventMeta{}
		return nil
	}

	switch b := value.(type) {
	case []byte:
		return json.Unmarshal(b, m)
	case string:
		return json.Unmarshal([]byte(b), m)
	default:
		return fmt.Errorf("models/transaction_event: meta invalid format error, expected json")
	}
}

func (m TransactionEventMeta) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("models/transaction_event: meta json marshal error %w", err)
	}

	return b, nil
}
