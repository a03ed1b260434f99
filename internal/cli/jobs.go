package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kleinvault/kleinvault/internal/models"
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:     "jobs [job-id]",
	Aliases: []string{"j", "job"},
	Short:   "List login jobs or show one job",
	Long: `Display login jobs, newest first, or the full status tuple of a
single job when an ID is given.

Examples:
  # Show all jobs
  kleinvault jobs

  # Show one job
  kleinvault jobs 7

  # Output as JSON
  kleinvault jobs --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	RootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("job id must be an integer: %q", args[0])
		}
		job, err := s.GetJob(id)
		if err != nil {
			return err
		}
		if globalFlags.JSON {
			return outputJSON(job)
		}
		return outputJobsTable([]*models.LoginJob{job})
	}

	jobs, err := s.ListJobs()
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		return outputJSON(jobs)
	}
	return outputJobsTable(jobs)
}

func outputJobsTable(jobs []*models.LoginJob) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tSTARTED\tFINISHED\tVALID\tACCOUNT")
	for _, job := range jobs {
		finished := "-"
		if job.FinishedAt != nil {
			finished = job.FinishedAt.Format("2006-01-02 15:04:05")
		}
		valid := "-"
		if job.Valid != nil {
			valid = strconv.FormatBool(*job.Valid)
		}
		account := "-"
		if job.AccountID != nil {
			account = strconv.FormatInt(*job.AccountID, 10)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID, job.Email, job.Status,
			job.StartedAt.Format("2006-01-02 15:04:05"),
			finished, valid, account)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d jobs\n", len(jobs))
	return nil
}
