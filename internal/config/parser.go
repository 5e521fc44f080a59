// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/spf13/viper"
)

// Defaults applied when the config file leaves a setting out.
const (
	DefaultScheme  = "https"
	DefaultAPIPath = "/api_jsonrpc.php"
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInvalidConfig is returned when the config file cannot be read or misses required keys.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Parser handles configuration file parsing.
type Parser struct {
	v   *viper.Viper
	env Env
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	return NewParserWithEnv(Env{})
}

// NewParserWithEnv creates a new configuration parser applying environment overrides.
func NewParserWithEnv(env Env) *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v, env: env}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", ErrInvalidConfig, err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("%w: reading config: %w", ErrInvalidConfig, err)
	}

	return p.parse()
}

//nolint:cyclop // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.Zabbix = models.ZabbixConfig{
		User:       p.expandEnv(p.v.GetString("user")),
		Password:   p.expandEnv(p.v.GetString("password")),
		Server:     p.expandEnv(p.v.GetString("server")),
		Scheme:     p.v.GetString("scheme"),
		APIPath:    p.v.GetString("api_path"),
		Insecure:   p.v.GetBool("insecure"),
		LegacyAPI:  p.v.GetBool("legacy_api"),
		AuthHeader: p.v.GetBool("auth_header"),
	}

	timeout, err := parseTimeout(p.v.Get("timeout"))
	if err != nil {
		return nil, err
	}
	cfg.Zabbix.Timeout = timeout

	// Required keys.
	if cfg.Zabbix.User == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidConfig)
	}
	if cfg.Zabbix.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}
	if cfg.Zabbix.Server == "" {
		return nil, fmt.Errorf("%w: server is required", ErrInvalidConfig)
	}

	if strings.HasPrefix(cfg.Zabbix.Password, SecVerPrefix) {
		password, err := DecryptPassword(cfg.Zabbix.Password, p.env.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("%w: password: %w", ErrInvalidConfig, err)
		}
		cfg.Zabbix.Password = password
	}

	// Set defaults.
	if cfg.Zabbix.Scheme == "" {
		cfg.Zabbix.Scheme = DefaultScheme
	}
	validSchemes := map[string]bool{"http": true, "https": true}
	if !validSchemes[cfg.Zabbix.Scheme] {
		return nil, fmt.Errorf("%w: scheme must be one of: http, https", ErrInvalidConfig)
	}
	if cfg.Zabbix.APIPath == "" {
		cfg.Zabbix.APIPath = DefaultAPIPath
	}
	if !strings.HasPrefix(cfg.Zabbix.APIPath, "/") {
		cfg.Zabbix.APIPath = "/" + cfg.Zabbix.APIPath
	}
	if cfg.Zabbix.Timeout == 0 {
		cfg.Zabbix.Timeout = DefaultTimeout
	}
	if cfg.Zabbix.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}

	// Environment overrides.
	if p.env.Timeout > 0 {
		cfg.Zabbix.Timeout = p.env.Timeout
	}
	if p.env.Insecure {
		cfg.Zabbix.Insecure = true
	}

	cfg.Hostname = p.v.GetString("hostname")
	if cfg.Hostname == "" {
		cfg.Hostname = defaultHostname()
	}

	// Parse optional notify config.
	if p.v.IsSet("notify") {
		cfg.Notify = &models.NotifyConfig{}
		for _, u := range p.v.GetStringSlice("notify.urls") {
			cfg.Notify.URLs = append(cfg.Notify.URLs, p.expandEnv(u))
		}

		if len(cfg.Notify.URLs) == 0 {
			return nil, fmt.Errorf("%w: notify.urls is required when notify is configured", ErrInvalidConfig)
		}
	}

	return cfg, nil
}

// expandEnv replaces ${VAR} references to set variables. Anything else,
// including a bare $ inside a password, is kept as written.
func (p *Parser) expandEnv(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			break
		}
		end += start
		b.WriteString(s[:start])
		if value, ok := os.LookupEnv(s[start+2 : end]); ok && end > start+2 {
			b.WriteString(value)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

// parseTimeout accepts a duration string ("10s") or a bare number of seconds.
func parseTimeout(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: timeout %q is not a duration like 10s", ErrInvalidConfig, v)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: timeout has unsupported type %T", ErrInvalidConfig, raw)
	}
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	if cfg.Zabbix.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidConfig)
	}

	if cfg.Zabbix.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}

	if cfg.Zabbix.Server == "" {
		return fmt.Errorf("%w: server is required", ErrInvalidConfig)
	}

	return nil
}
