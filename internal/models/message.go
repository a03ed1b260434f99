package models

import (
	"fmt"
	"time"
)

// Sender identities. Incoming messages come from customers; messages
// posted through the API are the operator replying.
const (
	SenderCustomer = "Kunde"
	SenderOperator = "Firma"
)

// Message is one append-only conversation line attached to an account.
type Message struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	ListingTitle string    `json:"listing_title"`
	Sender       string    `json:"sender"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks if the message is valid.
func (m *Message) Validate() error {
	if m.AccountID <= 0 {
		return fmt.Errorf("account_id is required")
	}
	if m.ListingTitle == "" {
		return fmt.Errorf("listing_title is required")
	}
	if m.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
