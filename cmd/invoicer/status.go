package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Follow a render job until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var (
	statusOnce     bool
	statusDownload string
)

func init() {
	statusCmd.Flags().BoolVar(&statusOnce, "once", false, "Query the status a single time and exit")
	statusCmd.Flags().StringVar(&statusDownload, "download", "", "Invoice ID whose PDF to download when the job succeeds")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jobID := models.JobID(args[0])

	var artifactID models.ArtifactID
	if statusDownload != "" {
		id, err := parseArtifactID(statusDownload)
		if err != nil {
			return err
		}
		artifactID = id
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if statusOnce {
		status, err := application.Client.GetJobStatus(cmd.Context(), jobID)
		if err != nil {
			return errors.New(models.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", jobID, status)
		return nil
	}

	res := application.Follow(cmd.Context(), jobID, artifactID, artifactID != 0)
	res.Source = string(jobID)
	printResult(cmd, res)
	if res.Err != nil {
		return errReported
	}
	return nil
}
