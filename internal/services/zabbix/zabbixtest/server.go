// Package zabbixtest provides an in-memory Zabbix JSON-RPC server for tests.
package zabbixtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/google/uuid"
)

// Credentials accepted by a new Server.
const (
	User     = "Admin"
	Password = "zabbix"
)

// Error codes sent by the server.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeNoPermissions  = -32500
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Server is a Zabbix API stand-in keeping hosts and maintenance windows in memory.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	hosts        map[string]string // name -> hostid
	maintenances map[string]models.Maintenance
	sessions     map[string]bool
	nextID       int
	calls        []string
	logouts      int
	failures     map[string]rpcError
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{
		hosts:        map[string]string{},
		maintenances: map[string]models.Maintenance{},
		sessions:     map[string]bool{},
		nextID:       100,
		failures:     map[string]rpcError{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Config returns client settings pointing at the server.
func (s *Server) Config() models.ZabbixConfig {
	u, _ := url.Parse(s.URL)
	return models.ZabbixConfig{
		User:     User,
		Password: Password,
		Server:   u.Host,
		Scheme:   u.Scheme,
		APIPath:  "/api_jsonrpc.php",
		Timeout:  2 * time.Second,
	}
}

// AddHost registers a host and returns its id.
func (s *Server) AddHost(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.hosts[name] = id
	return id
}

// AddMaintenance stores a window and returns its id.
func (s *Server) AddMaintenance(m models.Maintenance) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.newID()
	s.maintenances[m.ID] = m
	return m.ID
}

// Maintenances returns the stored windows ordered by id.
func (s *Server) Maintenances() []models.Maintenance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedMaintenances()
}

// Calls returns the methods called so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Logouts returns how many sessions were logged out.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// OpenSessions returns how many sessions are still logged in.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// FailMethod makes every call of method answer with an error object.
func (s *Server) FailMethod(method, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: message}
}

func (s *Server) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Auth   string          `json:"auth"`
	ID     json.RawMessage `json:"id"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Auth == "" {
		req.Auth = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	result, rpcErr := s.dispatch(req)
	s.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) dispatch(req request) (any, *rpcError) {
	if e, ok := s.failures[req.Method]; ok {
		return nil, &e
	}

	if req.Method == "user.login" {
		return s.login(req.Params)
	}
	if !s.sessions[req.Auth] {
		return nil, &rpcError{Code: codeNoPermissions, Message: "Application error.", Data: "Session terminated, re-login, please."}
	}

	switch req.Method {
	case "user.logout":
		delete(s.sessions, req.Auth)
		s.logouts++
		return true, nil
	case "host.get":
		return s.hostGet(req.Params)
	case "maintenance.get":
		return s.maintenanceGet(req.Params)
	case "maintenance.create":
		return s.maintenanceCreate(req.Params)
	case "maintenance.delete":
		return s.maintenanceDelete(req.Params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "Method not found.", Data: "Incorrect API \"" + req.Method + "\"."}
	}
}

func invalidParams(data string) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: data}
}

func (s *Server) login(raw json.RawMessage) (any, *rpcError) {
	var p struct {
		Username string `json:"username"`
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	name := p.Username
	if name == "" {
		name = p.User
	}
	if name != User || p.Password != Password {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: "Incorrect user name or password or account is temporarily blocked."}
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.sessions[token] = true
	return token, nil
}

func (s *Server) hostGet(raw json.RawMessage) (any, *rpcError) {
	var p struct {
		Filter struct {
			Host []string `json:"host"`
		} `json:"filter"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	out := []map[string]string{}
	for _, name := range p.Filter.Host {
		if id, ok := s.hosts[name]; ok {
			out = append(out, map[string]string{"hostid": id, "host": name})
		}
	}
	return out, nil
}

func (s *Server) maintenanceGet(raw json.RawMessage) (any, *rpcError) {
	var p struct {
		HostIDs []string `json:"hostids"`
		Filter  struct {
			Name []string `json:"name"`
		} `json:"filter"`
		Search struct {
			Name string `json:"name"`
		} `json:"search"`
		SearchWildcardsEnabled bool `json:"searchWildcardsEnabled"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err.Error())
	}

	out := []map[string]any{}
	for _, m := range s.sortedMaintenances() {
		if len(p.HostIDs) > 0 && !overlaps(m.HostIDs, p.HostIDs) {
			continue
		}
		if len(p.Filter.Name) > 0 && !slices.Contains(p.Filter.Name, m.Name) {
			continue
		}
		if p.Search.Name != "" && !searchMatch(p.Search.Name, m.Name, p.SearchWildcardsEnabled) {
			continue
		}
		out = append(out, toWire(m))
	}
	return out, nil
}

func (s *Server) maintenanceCreate(raw json.RawMessage) (any, *rpcError) {
	var p struct {
		Name        string `json:"name"`
		ActiveSince int64  `json:"active_since"`
		ActiveTill  int64  `json:"active_till"`
		Hosts       []struct {
			HostID string `json:"hostid"`
		} `json:"hosts"`
		LegacyHostIDs []string `json:"hostids"`
		TimePeriods   []struct {
			Type   int   `json:"timeperiod_type"`
			Period int64 `json:"period"`
		} `json:"timeperiods"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err.Error())
	}
	for _, m := range s.maintenances {
		if m.Name == p.Name {
			return nil, invalidParams("Maintenance \"" + p.Name + "\" already exists.")
		}
	}
	if p.ActiveTill <= p.ActiveSince {
		return nil, invalidParams("\"active_till\" must be greater than \"active_since\".")
	}

	m := models.Maintenance{
		ID:          s.newID(),
		Name:        p.Name,
		ActiveSince: p.ActiveSince,
		ActiveTill:  p.ActiveTill,
		HostIDs:     p.LegacyHostIDs,
	}
	for _, h := range p.Hosts {
		m.HostIDs = append(m.HostIDs, h.HostID)
	}
	if len(m.HostIDs) == 0 {
		return nil, invalidParams("At least one host group or host must be selected.")
	}
	for _, tp := range p.TimePeriods {
		m.TimePeriods = append(m.TimePeriods, models.TimePeriod{Type: tp.Type, Period: tp.Period})
	}
	s.maintenances[m.ID] = m

	return map[string][]string{"maintenanceids": {m.ID}}, nil
}

func (s *Server) maintenanceDelete(raw json.RawMessage) (any, *rpcError) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, invalidParams(err.Error())
	}
	for _, id := range ids {
		if _, ok := s.maintenances[id]; !ok {
			return nil, &rpcError{Code: codeInvalidParams, Message: "Invalid params.", Data: "No permissions to referred object or it does not exist!"}
		}
	}
	for _, id := range ids {
		delete(s.maintenances, id)
	}
	return map[string][]string{"maintenanceids": ids}, nil
}

func (s *Server) sortedMaintenances() []models.Maintenance {
	ids := make([]int, 0, len(s.maintenances))
	for id := range s.maintenances {
		n, _ := strconv.Atoi(id)
		ids = append(ids, n)
	}
	sort.Ints(ids)
	out := make([]models.Maintenance, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.maintenances[strconv.Itoa(id)])
	}
	return out
}

// toWire renders a window the way the API does, with numbers as strings.
func toWire(m models.Maintenance) map[string]any {
	hosts := make([]map[string]string, 0, len(m.HostIDs))
	for _, id := range m.HostIDs {
		hosts = append(hosts, map[string]string{"hostid": id})
	}
	periods := make([]map[string]string, 0, len(m.TimePeriods))
	for _, tp := range m.TimePeriods {
		periods = append(periods, map[string]string{
			"timeperiod_type": strconv.Itoa(tp.Type),
			"period":          strconv.FormatInt(tp.Period, 10),
		})
	}
	return map[string]any{
		"maintenanceid": m.ID,
		"name":          m.Name,
		"active_since":  strconv.FormatInt(m.ActiveSince, 10),
		"active_till":   strconv.FormatInt(m.ActiveTill, 10),
		"hosts":         hosts,
		"timeperiods":   periods,
	}
}

// searchMatch follows the API: a plain search is a case-insensitive substring match,
// with wildcards enabled the pattern must match the whole name and '*' matches anything.
func searchMatch(pattern, name string, wildcards bool) bool {
	if !wildcards {
		return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
	}
	expr := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	return regexp.MustCompile(expr).MatchString(name)
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
