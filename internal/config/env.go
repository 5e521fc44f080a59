package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the name prefix of every environment variable read by the tool.
const EnvPrefix = "ZBX_MAINTENANCE_"

// Env holds settings taken from the environment, for example:
//
//	ZBX_MAINTENANCE_CONFIG=/srv/zabbix_maintenance.yml
//	ZBX_MAINTENANCE_SECKEY=... (key for _v1_ encrypted passwords)
type Env struct {
	ConfigFile string        `env:"CONFIG"`
	SecretKey  string        `env:"SECKEY"`
	Timeout    time.Duration `env:"HTTP_CLIENT_TIMEOUT"`
	Insecure   bool          `env:"TLS_CLIENT_INSECURE"`
}

// LoadEnv reads the process environment.
func LoadEnv() (Env, error) {
	return parseEnv(env.Options{Prefix: EnvPrefix})
}

// LoadEnvFrom reads settings from the given variables instead of the process environment.
func LoadEnvFrom(vars map[string]string) (Env, error) {
	return parseEnv(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parseEnv(opts env.Options) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return Env{}, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}
	return e, nil
}
