package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/models"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Inspect invoices stored on the invoice service",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	Args:  cobra.NoArgs,
	RunE:  runInvoicesList,
}

var invoicesGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesGet,
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd, invoicesGetCmd)
}

func parseArtifactID(raw string) (models.ArtifactID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid invoice id %q", raw)
	}
	return models.ArtifactID(id), nil
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	invoices, err := application.Client.ListInvoices(cmd.Context())
	if err != nil {
		return errors.New(models.UserMessage(err))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tCUSTOMER\tITEMS\tTOTAL")
	for _, inv := range invoices {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", inv.ID, inv.CompanyName, inv.Customer.Name, len(inv.Items), models.FormatCents(inv.TotalCents()))
	}
	return w.Flush()
}

func runInvoicesGet(cmd *cobra.Command, args []string) error {
	id, err := parseArtifactID(args[0])
	if err != nil {
		return err
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	inv, err := application.Client.GetInvoice(cmd.Context(), id)
	if err != nil {
		return errors.New(models.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Invoice %d\n", inv.ID)
	fmt.Fprintf(out, "Company:  %s\n", inv.CompanyName)
	fmt.Fprintf(out, "Address:  %s\n", inv.Address)
	if inv.Customer.Name != "" {
		fmt.Fprintf(out, "Customer: %s\n", inv.Customer.Name)
	}
	if inv.CreatedAt != nil {
		fmt.Fprintf(out, "Created:  %s\n", inv.CreatedAt.Format("2006-01-02 15:04"))
	}
	for _, item := range inv.Items {
		fmt.Fprintf(out, "  %-30s %4d x %10s = %10s\n", item.Name, item.Quantity,
			models.FormatCents(models.Cents(item.UnitPrice)), models.FormatCents(item.TotalCents()))
	}
	fmt.Fprintf(out, "Total:    %s\n", models.FormatCents(inv.TotalCents()))
	return nil
}
