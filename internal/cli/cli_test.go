package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleinvault/kleinvault/internal/models"
	"github.com/kleinvault/kleinvault/internal/store"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, RootCmd)
	assert.Equal(t, "kleinvault", RootCmd.Use)
	assert.Contains(t, RootCmd.Long, "KleinVault")
}

func TestVersionCommand(t *testing.T) {
	assert.NotNil(t, versionCmd)
	assert.Equal(t, "version", versionCmd.Use)
}

func TestGetGlobalFlags(t *testing.T) {
	InitCLI()

	flags := GetGlobalFlags()
	assert.Equal(t, "config.yaml", flags.Config)
	assert.Equal(t, "./data/accounts.db", flags.DBPath)
	assert.False(t, flags.Verbose)
}

func TestInitCLIIdempotent(t *testing.T) {
	InitCLI()
	InitCLI()

	assert.True(t, cliInitialized)
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
}

func TestSeedAndListCommands(t *testing.T) {
	InitCLI()

	dbPath := filepath.Join(t.TempDir(), "accounts.db")

	require.NoError(t, Execute([]string{"seed", "--db", dbPath}))

	s, err := store.NewSQLiteStore(dbPath, store.Options{})
	require.NoError(t, err)
	defer s.Close()

	accounts, err := s.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	// Listing commands run cleanly against the seeded store.
	require.NoError(t, Execute([]string{"accounts", "--db", dbPath}))
	require.NoError(t, Execute([]string{"jobs", "--db", dbPath, "--json"}))
}

func TestJobsCommandUnknownID(t *testing.T) {
	InitCLI()

	dbPath := filepath.Join(t.TempDir(), "accounts.db")
	s, err := store.NewSQLiteStore(dbPath, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = Execute([]string{"jobs", "999", "--db", dbPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = Execute([]string{"jobs", "not-a-number", "--db", dbPath})
	require.Error(t, err)
}

func TestJobsTableOutput(t *testing.T) {
	valid := true
	accountID := int64(3)
	job := &models.LoginJob{
		ID:        1,
		Email:     "a@example.com",
		Status:    models.StatusValid,
		Valid:     &valid,
		AccountID: &accountID,
	}
	require.NoError(t, outputJobsTable([]*models.LoginJob{job}))
}
