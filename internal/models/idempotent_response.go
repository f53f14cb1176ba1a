package models

import "time"

// IdempotentResponse is the first response produced for an Idempotency-Key.
// RequestHash fingerprints the request body the key was first used with.
type IdempotentResponse struct {
	Key         string
	RequestHash string
	Status      int
	Location    string
	Body        []byte
	CreatedAt   time.Time
}
