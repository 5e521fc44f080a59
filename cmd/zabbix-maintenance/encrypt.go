package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fgeck/zabbix-maintenance/internal/config"
	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
	"github.com/spf13/cobra"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt-password [password]",
	Short: "Encrypt a password for the config file",
	Long: `Encrypt a password with the key in ZBX_MAINTENANCE_SECKEY and print the value
to put into the config file's password key. The password is read from stdin
when not given as an argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: encryptPassword,
}

func encryptPassword(cmd *cobra.Command, args []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: reading password from stdin: %w", maintenance.ErrUsage, err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", maintenance.ErrUsage)
	}

	encrypted, err := config.EncryptPassword(password, env.SecretKey)
	if err != nil {
		return fmt.Errorf("%w: %w", maintenance.ErrUsage, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), encrypted)
	return nil
}
