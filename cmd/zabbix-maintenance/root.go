package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "zabbix-maintenance <start|stop|check>",
	Short: "Start, stop or check a Zabbix maintenance window for a host",
	Long: `zabbix-maintenance toggles a one-shot maintenance window for a single host
through the Zabbix JSON-RPC API:
  - start: replace the host's window with one covering now .. now+period
  - stop:  delete the host's window
  - check: list the host's windows

Run it from deploy scripts, cron jobs or systemd units around planned work.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Usage()
		return fmt.Errorf("%w: did not receive action argument start, stop or check", maintenance.ErrUsage)
	},
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: platform path, then ./zabbix_maintenance.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(encryptCmd)
}

// setupLogging writes logs to w so stdout stays free for the report.
func setupLogging(w io.Writer) {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}
