package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a login job.
type JobStatus string

const (
	// StatusRunning is the initial state: the job row exists and the
	// session workflow is scheduled.
	StatusRunning JobStatus = "running"
	// StatusWaitingForUser means the interactive browser window is open
	// and a human must complete the login.
	StatusWaitingForUser JobStatus = "waiting_for_user"
	// StatusChecking means the session was closed and the headless
	// validity check is underway.
	StatusChecking JobStatus = "checking"
	// StatusValid is terminal: credentials validated, account promoted.
	StatusValid JobStatus = "valid"
	// StatusInvalid is terminal: validation failed, no account created.
	StatusInvalid JobStatus = "invalid"
)

func statusRank(s JobStatus) int {
	switch s {
	case StatusRunning:
		return 0
	case StatusWaitingForUser:
		return 1
	case StatusChecking:
		return 2
	case StatusValid, StatusInvalid:
		return 3
	}
	return -1
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == StatusValid || s == StatusInvalid
}

// CanTransition reports whether moving from s to next respects the
// monotonic machine running → waiting_for_user → checking → terminal.
// Terminal states are never left and no state is revisited.
func (s JobStatus) CanTransition(next JobStatus) bool {
	from, to := statusRank(s), statusRank(next)
	if from < 0 || to < 0 {
		return false
	}
	if s.Terminal() {
		return false
	}
	return to > from
}

// LoginJob represents one attempt to turn raw credentials into an
// Account via an interactive browser session.
type LoginJob struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	Proxy       string     `json:"proxy"`
	Device      string     `json:"device"`
	ProfilePath string     `json:"profile_path"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CheckedAt   *time.Time `json:"checked_at,omitempty"`
	// Valid is tri-state: nil until the check ran.
	Valid *bool `json:"valid,omitempty"`
	// AccountID links the promoted account, set only on success.
	AccountID *int64 `json:"account_id,omitempty"`
}
