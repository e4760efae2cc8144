package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

func newJobsCommand(flags *rootFlags) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List persisted chapter jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			list, err := loadJobs(cmd, cfg, jobs.Status(status))
			if err != nil {
				return err
			}
			renderJobs(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show jobs with this status")
	return cmd
}

// loadJobs reads the store directly; a running server keeps it current.
func loadJobs(cmd *cobra.Command, cfg *config.Config, status jobs.Status) ([]*jobs.TranslationJob, error) {
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	loaded, err := store.LoadJobs(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	ret := make([]*jobs.TranslationJob, 0, len(loaded))
	for _, job := range loaded {
		if status == "" || job.Status == status {
			ret = append(ret, job)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}
