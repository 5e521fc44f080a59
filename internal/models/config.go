// Package models contains the data structures used throughout zabbix-maintenance.
package models

import (
	"net/url"
	"time"
)

// Config holds the complete configuration for a maintenance run.
type Config struct {
	Zabbix   ZabbixConfig
	Hostname string        // host to act on unless overridden on the command line
	Notify   *NotifyConfig // nil if not configured
}

// ZabbixConfig holds the Zabbix API connection settings.
type ZabbixConfig struct {
	User       string
	Password   string
	Server     string        // hostname (and optional port) of the API endpoint
	Scheme     string        // "https" (default) or "http"
	APIPath    string        // defaults to /api_jsonrpc.php
	Timeout    time.Duration // per request
	Insecure   bool          // skip TLS certificate verification
	LegacyAPI  bool          // "user" login parameter and "hostids" on create, for Zabbix < 5.4
	AuthHeader bool          // send the token as a Bearer header instead of the "auth" field
}

// URL returns the JSON-RPC endpoint of the server.
func (c ZabbixConfig) URL() string {
	u := url.URL{
		Scheme: c.Scheme,
		Host:   c.Server,
		Path:   c.APIPath,
	}
	return u.String()
}

// NotifyConfig holds the shoutrrr service URLs notified after a change.
type NotifyConfig struct {
	URLs []string
}
