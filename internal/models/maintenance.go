package models

import "time"

// Action is the operation requested for a run.
type Action string

// Supported actions.
const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
	ActionCheck Action = "check"
)

// MatchMode controls how maintenance names are compared on lookup.
type MatchMode int

const (
	// MatchExact requires the maintenance name to equal the filter.
	MatchExact MatchMode = iota
	// MatchWildcard searches for the filter as a pattern where '*' matches anything.
	MatchWildcard
)

// String returns the mode name used in logs.
func (m MatchMode) String() string {
	if m == MatchWildcard {
		return "wildcard"
	}
	return "exact"
}

// Request describes what a single run should do.
type Request struct {
	Action    Action
	Host      string
	Hours     float64 // fractional hours, only used by start
	Keyword   string  // optional maintenance name suffix
	DeleteAll bool    // stop only: delete every matching window
}

// MaintenanceFilter selects maintenance windows of a host by name.
type MaintenanceFilter struct {
	Name string
	Mode MatchMode
}

// Host is a monitored host on the Zabbix server.
type Host struct {
	ID   string `json:"hostid" yaml:"hostid"`
	Name string `json:"host" yaml:"host"`
}

// TimePeriodOneTime is the timeperiod_type of a one-shot period.
const TimePeriodOneTime = 0

// TimePeriod is the recurrence attached to a maintenance window.
type TimePeriod struct {
	Type   int   `json:"timeperiod_type" yaml:"timeperiod_type"`
	Period int64 `json:"period" yaml:"period"` // seconds
}

// Maintenance is a maintenance window on the Zabbix server.
type Maintenance struct {
	ID          string       `json:"maintenanceid,omitempty" yaml:"maintenanceid,omitempty"`
	Name        string       `json:"name" yaml:"name"`
	ActiveSince int64        `json:"active_since" yaml:"active_since"` // epoch seconds
	ActiveTill  int64        `json:"active_till" yaml:"active_till"`   // epoch seconds
	HostIDs     []string     `json:"hostids" yaml:"hostids"`
	TimePeriods []TimePeriod `json:"timeperiods" yaml:"timeperiods"`
}

// Period returns the duration of the first time period in seconds.
func (m Maintenance) Period() int64 {
	if len(m.TimePeriods) == 0 {
		return 0
	}
	return m.TimePeriods[0].Period
}

// ActionResult holds the outcome of a run, rendered for the operator.
type ActionResult struct {
	Action       Action        `json:"action" yaml:"action"`
	Host         string        `json:"host" yaml:"host"`
	Server       string        `json:"server" yaml:"server"`
	HostFound    bool          `json:"host_found" yaml:"host_found"`
	HostID       string        `json:"hostid,omitempty" yaml:"hostid,omitempty"`
	Name         string        `json:"name" yaml:"name"`
	Maintenances []Maintenance `json:"maintenances" yaml:"maintenances"`
	Deleted      []string      `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Created      *Maintenance  `json:"created,omitempty" yaml:"created,omitempty"`
	Duration     time.Duration `json:"-" yaml:"-"`
}

// NotifyMessage holds the data for a maintenance change notification.
type NotifyMessage struct {
	Action      Action
	Host        string
	Server      string
	Name        string
	Deleted     []string
	Created     *Maintenance
	PeriodHuman string // e.g. "1:30"
}

// NotifyResult holds the result of a notification.
type NotifyResult struct {
	MessagesSent int
	Error        error
}
