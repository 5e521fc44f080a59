package config

import (
	"os"
	"runtime"
)

// Config file locations.
const (
	DefaultPathWindows = `C:\ProgramData\zabbix\zabbix_maintenance.yml`
	DefaultPathUnix    = "/etc/zabbix/zabbix_maintenance.yml"
	FallbackName       = "zabbix_maintenance.yml"
)

// DefaultPath returns the platform default config file path.
func DefaultPath(goos string) string {
	if goos == "windows" {
		return DefaultPathWindows
	}
	return DefaultPathUnix
}

// ResolvePath picks the config file: explicit flag, then environment, then the
// platform default, falling back to the working directory when the default is absent.
func ResolvePath(explicit string, e Env) string {
	return resolvePath(explicit, e, runtime.GOOS, fileExists)
}

func resolvePath(explicit string, e Env, goos string, exists func(string) bool) string {
	if explicit != "" {
		return explicit
	}
	if e.ConfigFile != "" {
		return e.ConfigFile
	}
	if def := DefaultPath(goos); exists(def) {
		return def
	}
	return FallbackName
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
