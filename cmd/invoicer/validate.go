package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/models"
	"github.com/ternarybob/invoicer/internal/services/documents"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check invoice documents without submitting them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	invalid := 0

	for _, path := range args {
		invoice, err := documents.LoadFile(path)
		if err == nil {
			err = invoice.Validate()
		}
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok (%d items, total %s)\n", path, len(invoice.Items), models.FormatCents(invoice.TotalCents()))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d documents are invalid", invalid, len(args))
	}
	return nil
}
