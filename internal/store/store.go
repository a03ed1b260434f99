package store

import (
	"time"

	"github.com/kleinvault/kleinvault/internal/models"
)

// JobUpdate is a partial update for a login job. Nil fields keep the
// existing column value; a set field overwrites it. Applied as one
// statement, so concurrent updaters never half-clobber a row.
type JobUpdate struct {
	Status      *models.JobStatus
	ProfilePath *string
	FinishedAt  *time.Time
	CheckedAt   *time.Time
	Valid       *bool
	AccountID   *int64
}

// Store is the durable table set shared by the orchestrator and the
// query API. All writes are single-statement atomic.
type Store interface {
	// Job operations
	CreateJob(job *models.LoginJob) (int64, error)
	GetJob(id int64) (*models.LoginJob, error)
	UpdateJob(id int64, update JobUpdate) error
	ListJobs() ([]*models.LoginJob, error)

	// Account operations
	CreateAccount(acc *models.Account) (int64, error)
	GetAccount(id int64) (*models.Account, error)
	ListAccounts() ([]*models.Account, error)

	// Message operations
	AppendMessage(msg *models.Message) (int64, error)
	ListMessages() ([]*models.Message, error)

	Stats() Stats
	Close() error
}

// Stats holds store statistics.
type Stats struct {
	AccountCount int
	JobCount     int
	MessageCount int
}
