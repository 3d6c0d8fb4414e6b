package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/services/documents"
	"github.com/ternarybob/invoicer/internal/services/preview"
)

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Render a local draft PDF of an invoice",
	Long:  `Renders the invoice layout locally without contacting the invoice service. The draft is written to the preview output directory as <name>.preview.pdf.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var previewOut string

func init() {
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Output file (overrides the preview output directory)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]

	invoice, err := documents.LoadFile(path)
	if err != nil {
		return err
	}

	pdf, err := preview.NewService(logger).RenderInvoice(invoice)
	if err != nil {
		return err
	}

	out := previewOut
	if out == "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out = filepath.Join(config.Preview.OutputDir, name+".preview.pdf")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}
	if err := os.WriteFile(out, pdf, 0644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}

	logger.Info().Str("path", out).Int("bytes", len(pdf)).Msg("Preview written")
	fmt.Fprintf(cmd.OutOrStdout(), "preview saved to %s\n", out)
	return nil
}
