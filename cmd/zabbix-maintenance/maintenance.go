package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/zabbix-maintenance/internal/config"
	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/fgeck/zabbix-maintenance/internal/report"
	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Action flags.
var (
	targetHost   string
	timePeriod   float64
	keyword      string
	deleteAll    bool
	outputFormat string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Create a maintenance window for the host",
	Long: `Create a one-shot maintenance window for the host lasting --time-period hours.
An existing window with the same name is deleted first.`,
	Args: cobra.NoArgs,
	RunE: runAction(models.ActionStart),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Delete the maintenance window of the host",
	Args:  cobra.NoArgs,
	RunE:  runAction(models.ActionStop),
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "List the maintenance windows of the host",
	Args:  cobra.NoArgs,
	RunE:  runAction(models.ActionCheck),
}

func init() {
	for _, cmd := range []*cobra.Command{startCmd, stopCmd, checkCmd} {
		cmd.Flags().StringVarP(&targetHost, "target-host", "s", "", "host name in Zabbix (default: config hostname, then this machine's FQDN)")
		cmd.Flags().Float64VarP(&timePeriod, "time-period", "t", 1, "maintenance period in hours, fractions allowed")
		cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "maintenance name suffix, '*' matches anything")
		cmd.Flags().StringVarP(&outputFormat, "output", "o", string(report.FormatText), "output format: text, json or yaml")
	}
	stopCmd.Flags().BoolVarP(&deleteAll, "delete-all", "r", false, "delete every matching maintenance window")
}

// loadConfig resolves the config file and parses it with environment overrides applied.
func loadConfig() (*models.Config, string, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, "", err
	}

	path := config.ResolvePath(configFile, env)
	parser := config.NewParserWithEnv(env)
	cfg, err := parser.LoadFile(path)
	if err != nil {
		return nil, path, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

func runAction(action models.Action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(outputFormat)
		if err != nil {
			return fmt.Errorf("%w: %w", maintenance.ErrUsage, err)
		}

		// Load configuration
		cfg, path, err := loadConfig()
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to load config")
			return err
		}

		host := targetHost
		if host == "" {
			host = cfg.Hostname
		}

		req := models.Request{
			Action:    action,
			Host:      host,
			Hours:     timePeriod,
			Keyword:   keyword,
			DeleteAll: deleteAll,
		}

		log.Debug().
			Str("config", path).
			Str("server", cfg.Zabbix.Server).
			Str("host", host).
			Msg("configuration loaded")

		// Set up context with signal handling
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case sig := <-sigChan:
				log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()

		svc := maintenance.New(log.Logger, *cfg)
		result, err := svc.Run(ctx, *cfg, req)
		if err != nil {
			if action == models.ActionCheck && errors.Is(err, maintenance.ErrHostNotFound) {
				_ = report.Render(cmd.OutOrStdout(), format, result)
			}
			log.Error().Err(err).Str("action", string(action)).Str("host", host).Msg("maintenance run failed")
			return err
		}

		return report.Render(cmd.OutOrStdout(), format, result)
	}
}
