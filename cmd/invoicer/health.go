package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/models"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the invoice service and its database",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "service:  %s\n", application.Client.BaseURL())

	status, err := application.Client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %s", models.UserMessage(err))
	}
	fmt.Fprintf(out, "health:   %s\n", status)

	db, err := application.Client.DBStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("database check failed: %s", models.UserMessage(err))
	}
	fmt.Fprintf(out, "database: %s\n", db)
	return nil
}
