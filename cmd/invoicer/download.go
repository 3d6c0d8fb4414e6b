package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/models"
)

var downloadCmd = &cobra.Command{
	Use:   "download ID",
	Short: "Download the generated PDF of an invoice",
	Long: `Downloads report_<id>.pdf for an invoice. With --job the render job is checked first and
the download only happens once it has succeeded. Without --job the render is assumed to be
finished; use "status JOB_ID --download ID" to wait for it instead.`,
	Args: cobra.ExactArgs(1),
	RunE:  runDownload,
}

var (
	downloadURLOnly bool
	downloadOut     string
	downloadJob     string
)

func init() {
	downloadCmd.Flags().BoolVar(&downloadURLOnly, "url-only", false, "Print the download URL instead of fetching the file")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "Output directory (overrides config)")
	downloadCmd.Flags().StringVar(&downloadJob, "job", "", "Render job ID to check before downloading")
}

func runDownload(cmd *cobra.Command, args []string) error {
	id, err := parseArtifactID(args[0])
	if err != nil {
		return err
	}

	if downloadOut != "" {
		config.Artifacts.OutputDir = downloadOut
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if downloadURLOnly {
		fmt.Fprintln(cmd.OutOrStdout(), application.Retriever.URL(id))
		return nil
	}

	status := models.JobStatusSucceeded
	if downloadJob != "" {
		status, err = application.Client.GetJobStatus(cmd.Context(), models.JobID(downloadJob))
		if err != nil {
			return errors.New(models.UserMessage(err))
		}
	}

	artifact, err := application.Retriever.Retrieve(cmd.Context(), id, status)
	if err != nil {
		return errors.New(models.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes, %d pages)\n", artifact.Path, artifact.Bytes, artifact.Pages)
	return nil
}
