package maintenance

import (
	"fmt"
	"math"
	"strings"

	"github.com/fgeck/zabbix-maintenance/internal/models"
)

// MaxPeriodHours is the exclusive upper bound of a maintenance period accepted by Zabbix.
const MaxPeriodHours = 148159

// namePrefix starts the name of every window managed by this tool.
const namePrefix = "maintenance_"

// ValidateHours checks a requested duration before anything is sent to the server.
func ValidateHours(hours float64) error {
	switch {
	case math.IsNaN(hours) || math.IsInf(hours, 0):
		return fmt.Errorf("%w: time period must be a number of hours", ErrValidation)
	case hours <= 0:
		return fmt.Errorf("%w: time period must be greater than 0 hours, got %v", ErrValidation, hours)
	case hours >= MaxPeriodHours:
		return fmt.Errorf("%w: maximum size of a period is %d hours, got %v", ErrValidation, MaxPeriodHours, hours)
	case PeriodSeconds(hours) < 1:
		return fmt.Errorf("%w: time period of %v hours is shorter than one second", ErrValidation, hours)
	}
	return nil
}

// PeriodSeconds converts fractional hours to whole seconds.
func PeriodSeconds(hours float64) int64 {
	return int64(math.Round(hours * 3600))
}

// FormatPeriod renders seconds as H:MM.
func FormatPeriod(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/3600, seconds%3600/60)
}

// Name returns the maintenance name for a host and optional keyword.
func Name(host, keyword string) string {
	if keyword == "" {
		return namePrefix + host
	}
	return namePrefix + host + "_" + keyword
}

// Filter returns the lookup filter for a request.
// Without a keyword only the exact default name matches; a keyword is searched
// as a pattern so it may contain '*'.
func Filter(req models.Request) models.MaintenanceFilter {
	if req.Keyword == "" {
		return models.MaintenanceFilter{Name: Name(req.Host, ""), Mode: models.MatchExact}
	}
	return models.MaintenanceFilter{Name: Name(req.Host, req.Keyword), Mode: models.MatchWildcard}
}

// NewWindow builds a one-shot maintenance window starting at since.
func NewWindow(name, hostID string, since, period int64) models.Maintenance {
	return models.Maintenance{
		Name:        name,
		ActiveSince: since,
		ActiveTill:  since + period,
		HostIDs:     []string{hostID},
		TimePeriods: []models.TimePeriod{{Type: models.TimePeriodOneTime, Period: period}},
	}
}

// ValidateRequest checks a request before any remote call is made.
func ValidateRequest(req models.Request) error {
	switch req.Action {
	case models.ActionStart, models.ActionStop, models.ActionCheck:
	default:
		return fmt.Errorf("%w: did not receive action argument start, stop or check", ErrUsage)
	}
	if strings.TrimSpace(req.Host) == "" {
		return fmt.Errorf("%w: no target host given", ErrUsage)
	}
	if req.DeleteAll && req.Action != models.ActionStop {
		return fmt.Errorf("%w: delete-all works only for the stop action", ErrUsage)
	}
	// start names the new window after the keyword, so it must be literal.
	if req.Action == models.ActionStart && strings.Contains(req.Keyword, "*") {
		return fmt.Errorf("%w: keyword %q names the new maintenance and cannot contain '*'", ErrUsage, req.Keyword)
	}
	return ValidateHours(req.Hours)
}

// selectExact narrows multiple matches down to the one carrying the exact name.
func selectExact(found []models.Maintenance, name string) (models.Maintenance, bool) {
	var match models.Maintenance
	n := 0
	for _, m := range found {
		if m.Name == name {
			match = m
			n++
		}
	}
	return match, n == 1
}
