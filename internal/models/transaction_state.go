package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type TransactionState int

const (
	TransactionStateSend     TransactionState = 0
	TransactionStateReceived TransactionState = 1
	TransactionStatePaid     TransactionState = 2
)

var transactionStateNames = map[TransactionState]string{
	TransactionStateSend:     "Send",
	TransactionStateReceived: "Received",
	TransactionStatePaid:     "Paid",
}

func (s TransactionState) Valid() bool {
	_, ok := transactionStateNames[s]
	return ok
}

func (s TransactionState) String() string {
	if name, ok := transactionStateNames[s]; ok {
		return name
	}

	return strconv.Itoa(int(s))
}

// ParseTransactionState accepts a state name in any letter case or its number.
func ParseTransactionState(raw string) (TransactionState, error) {
	raw = strings.TrimSpace(raw)

	for state, name := range transactionStateNames {
		if strings.EqualFold(name, raw) {
			return state, nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("models/transaction_state: unknown state %q", raw)
	}

	return TransactionState(n), nil
}

func (s TransactionState) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return json.Marshal(int(s))
	}

	return json.Marshal(s.String())
}

func (s *TransactionState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		parsed, err := ParseTransactionState(name)
		if err != nil {
			return err
		}

		*s = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("models/transaction_state: state must be a name or a number")
	}

	*s = TransactionState(n)
	return nil
}
