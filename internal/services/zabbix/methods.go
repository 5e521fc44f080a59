package zabbix

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fgeck/zabbix-maintenance/internal/models"
)

// apiInt decodes integers that the API may send as JSON strings.
type apiInt int64

func (i *apiInt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*i = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", s, err)
		}
		*i = apiInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid integer %s: %w", b, err)
	}
	*i = apiInt(n)
	return nil
}

// hostJSON is a host object as returned by host.get.
type hostJSON struct {
	HostID string `json:"hostid"`
	Host   string `json:"host"`
}

// timePeriodJSON is a time period object as returned by maintenance.get.
type timePeriodJSON struct {
	TimeperiodType apiInt `json:"timeperiod_type"`
	Period         apiInt `json:"period"`
}

// maintenanceJSON is a maintenance object as returned by maintenance.get.
type maintenanceJSON struct {
	MaintenanceID string           `json:"maintenanceid"`
	Name          string           `json:"name"`
	ActiveSince   apiInt           `json:"active_since"`
	ActiveTill    apiInt           `json:"active_till"`
	Hosts         []hostJSON       `json:"hosts"`
	TimePeriods   []timePeriodJSON `json:"timeperiods"`
}

func (m maintenanceJSON) toModel() models.Maintenance {
	out := models.Maintenance{
		ID:          m.MaintenanceID,
		Name:        m.Name,
		ActiveSince: int64(m.ActiveSince),
		ActiveTill:  int64(m.ActiveTill),
		HostIDs:     make([]string, 0, len(m.Hosts)),
		TimePeriods: make([]models.TimePeriod, 0, len(m.TimePeriods)),
	}
	for _, h := range m.Hosts {
		out.HostIDs = append(out.HostIDs, h.HostID)
	}
	for _, tp := range m.TimePeriods {
		out.TimePeriods = append(out.TimePeriods, models.TimePeriod{
			Type:   int(tp.TimeperiodType),
			Period: int64(tp.Period),
		})
	}
	return out
}

// maintenanceIDs is the result of maintenance.create and maintenance.delete.
type maintenanceIDs struct {
	MaintenanceIDs []apiInt `json:"maintenanceids"`
}

// Login authenticates the configured user and returns a session.
func (c *Impl) Login(ctx context.Context) (*Session, error) {
	params := map[string]string{"password": c.cfg.Password}
	if c.cfg.LegacyAPI {
		params["user"] = c.cfg.User
	} else {
		params["username"] = c.cfg.User
	}

	c.logger.Debug().Str("user", c.cfg.User).Str("server", c.cfg.Server).Msg("logging in")

	var token string
	if err := c.call(ctx, MethodLogin, nil, params, &token); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%s: server returned an empty auth token", MethodLogin)
	}

	return NewSession(token), nil
}

// Logout invalidates the session token.
func (c *Impl) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	c.logger.Debug().Msg("logging out")
	return c.call(ctx, MethodLogout, s, []string{}, nil)
}

// GetHost looks up a single host by its exact technical name.
func (c *Impl) GetHost(ctx context.Context, s *Session, name string) (*models.Host, error) {
	params := map[string]any{
		"output": []string{"hostid", "host"},
		"filter": map[string]any{"host": []string{name}},
	}

	var hosts []hostJSON
	if err := c.call(ctx, MethodHostGet, s, params, &hosts); err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("host %q: %w", name, ErrNotFound)
	}

	return &models.Host{ID: hosts[0].HostID, Name: hosts[0].Host}, nil
}

// GetMaintenances returns the maintenance windows of a host matching the filter.
func (c *Impl) GetMaintenances(
	ctx context.Context,
	s *Session,
	hostID string,
	filter models.MaintenanceFilter,
) ([]models.Maintenance, error) {
	params := map[string]any{
		"output":            "extend",
		"selectHosts":       []string{"hostid", "host"},
		"selectTimeperiods": "extend",
		"hostids":           []string{hostID},
	}
	switch filter.Mode {
	case models.MatchWildcard:
		params["search"] = map[string]any{"name": filter.Name}
		params["searchWildcardsEnabled"] = true
	default:
		params["filter"] = map[string]any{"name": []string{filter.Name}}
	}

	c.logger.Debug().
		Str("hostid", hostID).
		Str("name", filter.Name).
		Stringer("mode", filter.Mode).
		Msg("looking up maintenance")

	var found []maintenanceJSON
	if err := c.call(ctx, MethodMaintenanceGet, s, params, &found); err != nil {
		return nil, err
	}

	result := make([]models.Maintenance, 0, len(found))
	for _, m := range found {
		result = append(result, m.toModel())
	}
	return result, nil
}

// CreateMaintenance creates a maintenance window and returns its id.
func (c *Impl) CreateMaintenance(ctx context.Context, s *Session, m models.Maintenance) (string, error) {
	timePeriods := make([]map[string]any, 0, len(m.TimePeriods))
	for _, tp := range m.TimePeriods {
		timePeriods = append(timePeriods, map[string]any{
			"timeperiod_type": tp.Type,
			"period":          tp.Period,
		})
	}

	params := map[string]any{
		"name":         m.Name,
		"active_since": m.ActiveSince,
		"active_till":  m.ActiveTill,
		"timeperiods":  timePeriods,
	}
	if c.cfg.LegacyAPI {
		params["hostids"] = m.HostIDs
	} else {
		hosts := make([]map[string]string, 0, len(m.HostIDs))
		for _, id := range m.HostIDs {
			hosts = append(hosts, map[string]string{"hostid": id})
		}
		params["hosts"] = hosts
	}

	var created maintenanceIDs
	if err := c.call(ctx, MethodMaintenanceCreate, s, params, &created); err != nil {
		return "", err
	}
	if len(created.MaintenanceIDs) == 0 {
		return "", fmt.Errorf("%s: server returned no maintenance id", MethodMaintenanceCreate)
	}

	return strconv.FormatInt(int64(created.MaintenanceIDs[0]), 10), nil
}

// DeleteMaintenance deletes maintenance windows by id.
func (c *Impl) DeleteMaintenance(ctx context.Context, s *Session, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var deleted maintenanceIDs
	return c.call(ctx, MethodMaintenanceDelete, s, ids, &deleted)
}
