package models

import (
	"fmt"
	"strings"
	"time"
)

// Account represents a promoted, usable marketplace credential set.
type Account struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"-"`
	Proxy       string `json:"proxy"`
	Device      string `json:"device"`
	ProfilePath string `json:"profile_path"`
	Notes       string `json:"notes"`
	// AgeDays is the legacy stored age, kept for rows predating
	// created_at. Age() prefers the timestamp.
	AgeDays   int        `json:"age_days"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Validate checks if the account is valid.
func (a *Account) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if a.AgeDays < 0 {
		return fmt.Errorf("age_days cannot be negative")
	}
	return nil
}

// Age returns the account age in days, recomputed from the creation
// timestamp when one is present and falling back to the legacy stored
// value otherwise.
func (a *Account) Age(now time.Time) int {
	if a.CreatedAt != nil {
		days := int(now.Sub(*a.CreatedAt).Hours() / 24)
		if days < 0 {
			return 0
		}
		return days
	}
	return a.AgeDays
}

// DisplayNameFromEmail derives an account display name from the local
// part of an email address.
func DisplayNameFromEmail(email string) string {
	local := email
	if i := strings.Index(email, "@"); i >= 0 {
		local = email[:i]
	}
	if local == "" {
		return email
	}
	return local
}
