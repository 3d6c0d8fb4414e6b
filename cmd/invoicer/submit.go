package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/app"
	"github.com/ternarybob/invoicer/internal/models"
	"github.com/ternarybob/invoicer/internal/services/documents"
)

var submitCmd = &cobra.Command{
	Use:   "submit FILE...",
	Short: "Submit invoices for PDF rendering",
	Long: `Validates each invoice document (TOML, YAML or JSON), creates it on the invoice service,
starts the PDF render and follows the job until it finishes. On success the PDF is saved
as report_<id>.pdf in the configured output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

var (
	submitWait       bool
	submitNoDownload bool
)

func init() {
	submitCmd.Flags().BoolVar(&submitWait, "wait", true, "Follow the render job until it finishes")
	submitCmd.Flags().BoolVar(&submitNoDownload, "no-download", false, "Do not download the PDF on success")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	docs := make([]app.Document, 0, len(args))
	for _, path := range args {
		invoice, err := documents.LoadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, app.Document{Source: path, Invoice: invoice})
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	opts := app.RunOptions{Wait: submitWait, Download: submitWait && !submitNoDownload}

	if len(docs) == 1 {
		res := application.Run(cmd.Context(), docs[0].Invoice, opts)
		res.Source = docs[0].Source
		printResult(cmd, res)
		if res.Err != nil {
			return errReported
		}
		return nil
	}

	results, err := application.SubmitBatch(cmd.Context(), docs, opts)
	failed := 0
	for _, res := range results {
		printResult(cmd, res)
		if res.Err != nil {
			failed++
		}
	}
	if err != nil {
		return fmt.Errorf("%d of %d invoices failed", failed, len(results))
	}
	return nil
}

// printResult writes one summary line per document. Error text is left out
// when the failure was already shown as a notice.
func printResult(cmd *cobra.Command, res *app.Result) {
	out := cmd.OutOrStdout()

	reason := ""
	if res.Err != nil && !res.Notified {
		reason = ": " + models.UserMessage(res.Err)
	}

	if res.Submission == nil {
		fmt.Fprintf(out, "%s: not submitted%s\n", res.Source, reason)
		return
	}

	line := fmt.Sprintf("%s: invoice %d, job %s", res.Source, res.Submission.ArtifactID, res.Submission.JobID)
	if res.Final.Terminal {
		line += fmt.Sprintf(", %s", res.Final.Status)
	}
	if res.Artifact != nil {
		line += fmt.Sprintf(", saved %s (%d pages)", res.Artifact.Path, res.Artifact.Pages)
	}
	fmt.Fprintln(out, line+reason)
}
