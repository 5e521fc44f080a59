package main

import (
	"errors"

	"github.com/fgeck/zabbix-maintenance/internal/config"
	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
)

// exitCode maps a run error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, maintenance.ErrHostNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}
