package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/app"
	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/services/notify"
)

var (
	// Persistent flags
	configFiles []string
	apiURL      string
	logLevel    string

	// Global state, set in PersistentPreRunE
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "invoicer",
	Short:         "Submit invoices for PDF rendering and collect the results",
	Long:          `Invoicer submits invoice documents to the invoice service, follows the render job until it finishes and downloads the generated PDF.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Invoice service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(submitCmd, statusCmd, downloadCmd, invoicesCmd, previewCmd, validateCmd, healthCmd, versionCmd)
}

// errReported is returned by commands whose failure has already been shown
// to the user. It only sets the exit status.
var errReported = errors.New("failure already reported")

func main() {
	defer common.RecoverWithCrashFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if code != 0 {
		os.Exit(code)
	}
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// loadConfig runs the startup sequence: defaults -> files -> env -> flags, then the logger.
func loadConfig() error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("invoicer.toml"); err == nil {
			configFiles = append(configFiles, "invoicer.toml")
		} else if _, err := os.Stat("deployments/local/invoicer.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/invoicer.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Logger is not configured yet
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, apiURL, logLevel)

	logger = common.InitLogger(config)
	common.InstallCrashHandler(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("base_url", config.API.BaseURL).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	return nil
}

// newApp wires the application. Notices are printed to stderr, and also
// logged when a log file is configured.
func newApp(cmd *cobra.Command) (*app.App, error) {
	notifier := notify.Multi{notify.NewWriterNotifier(cmd.ErrOrStderr())}
	for _, output := range config.Logging.Output {
		if output == "file" {
			notifier = append(notifier, notify.NewLogNotifier(logger))
			break
		}
	}
	return app.New(config, logger, notifier)
}
