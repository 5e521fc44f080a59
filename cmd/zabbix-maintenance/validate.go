package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without contacting the Zabbix server.`,
	Args:  cobra.NoArgs,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("configuration validation failed")
		return err
	}

	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  File: %s\n", path)
	fmt.Fprintf(out, "  API URL: %s\n", cfg.Zabbix.URL())
	fmt.Fprintf(out, "  User: %s\n", cfg.Zabbix.User)
	fmt.Fprintf(out, "  Password: (configured)\n")
	fmt.Fprintf(out, "  Hostname: %s\n", cfg.Hostname)
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.Zabbix.Timeout)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	fmt.Fprintf(out, "  Skip TLS verify: %v\n", cfg.Zabbix.Insecure)
	fmt.Fprintf(out, "  Legacy API: %v\n", cfg.Zabbix.LegacyAPI)
	fmt.Fprintf(out, "  Auth header: %v\n", cfg.Zabbix.AuthHeader)
	fmt.Fprintf(out, "  Notifications: %v\n", cfg.Notify != nil)

	if cfg.Notify != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Notify Configuration:")
		fmt.Fprintf(out, "  URLs: %d configured\n", len(cfg.Notify.URLs))
	}

	return nil
}
