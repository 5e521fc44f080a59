//go:build e2e

package e2e

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
	"github.com/fgeck/zabbix-maintenance/internal/services/notify"
	"github.com/fgeck/zabbix-maintenance/internal/services/zabbix"
	"github.com/fgeck/zabbix-maintenance/internal/services/zabbix/zabbixtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type recordingSender struct {
	messages []string
}

func (r *recordingSender) Send(url, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func newController(t *testing.T, srv *zabbixtest.Server, sender notify.Sender) (*maintenance.Impl, models.Config) {
	t.Helper()
	cfg := models.Config{Zabbix: srv.Config()}
	if sender != nil {
		cfg.Notify = &models.NotifyConfig{URLs: []string{"generic://hooks.example.com"}}
	}
	client := zabbix.New(testLogger(), cfg.Zabbix)
	svc := maintenance.NewWithServices(testLogger(), client, notify.NewWithSender(testLogger(), sender), time.Now)
	return svc, cfg
}

func TestMaintenanceRoundTrip_E2E(t *testing.T) {
	srv := zabbixtest.NewServer()
	defer srv.Close()
	srv.AddHost("web01")

	sender := &recordingSender{}
	svc, cfg := newController(t, srv, sender)
	ctx := context.Background()

	// start
	started, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStart, Host: "web01", Hours: 2.25})
	require.NoError(t, err)
	require.NotNil(t, started.Created)
	assert.Equal(t, int64(8100), started.Created.Period())
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "2:15")

	// check reports the same window
	checked, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionCheck, Host: "web01", Hours: 1})
	require.NoError(t, err)
	require.Len(t, checked.Maintenances, 1)
	m := checked.Maintenances[0]
	assert.Equal(t, started.Created.ID, m.ID)
	assert.Equal(t, int64(8100), m.Period())
	assert.Equal(t, m.ActiveSince+8100, m.ActiveTill)

	// start again replaces it
	restarted, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStart, Host: "web01", Hours: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, restarted.Deleted)
	require.Len(t, srv.Maintenances(), 1)

	// stop removes it
	stopped, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStop, Host: "web01", Hours: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{restarted.Created.ID}, stopped.Deleted)
	assert.Empty(t, srv.Maintenances())

	// stop again is a no-op
	stopped, err = svc.Run(ctx, cfg, models.Request{Action: models.ActionStop, Host: "web01", Hours: 1})
	require.NoError(t, err)
	assert.Empty(t, stopped.Deleted)

	assert.Equal(t, 5, srv.Logouts())
	assert.Zero(t, srv.OpenSessions())
	assert.Len(t, sender.messages, 3)
}

func TestMaintenanceKeyword_E2E(t *testing.T) {
	srv := zabbixtest.NewServer()
	defer srv.Close()
	srv.AddHost("web01")

	svc, cfg := newController(t, srv, nil)
	ctx := context.Background()

	for _, kw := range []string{"deploy", "backup"} {
		_, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStart, Host: "web01", Hours: 1, Keyword: kw})
		require.NoError(t, err)
	}
	require.Len(t, srv.Maintenances(), 2)

	// A wildcard matching both is ambiguous for stop without --delete-all.
	_, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStop, Host: "web01", Hours: 1, Keyword: "*"})
	require.ErrorIs(t, err, maintenance.ErrAmbiguous)
	require.Len(t, srv.Maintenances(), 2)

	// An exact keyword picks one.
	result, err := svc.Run(ctx, cfg, models.Request{Action: models.ActionStop, Host: "web01", Hours: 1, Keyword: "deploy"})
	require.NoError(t, err)
	require.Len(t, result.Deleted, 1)

	remaining := srv.Maintenances()
	require.Len(t, remaining, 1)
	assert.Equal(t, "maintenance_web01_backup", remaining[0].Name)

	// --delete-all clears everything matching.
	_, err = svc.Run(ctx, cfg, models.Request{Action: models.ActionStop, Host: "web01", Hours: 1, Keyword: "*", DeleteAll: true})
	require.NoError(t, err)
	assert.Empty(t, srv.Maintenances())
}

func TestMaintenanceAPIError_E2E(t *testing.T) {
	srv := zabbixtest.NewServer()
	defer srv.Close()
	srv.AddHost("web01")
	srv.FailMethod(zabbix.MethodMaintenanceCreate, "Incorrect value for field \"name\".")

	svc, cfg := newController(t, srv, nil)

	_, err := svc.Run(context.Background(), cfg, models.Request{Action: models.ActionStart, Host: "web01", Hours: 1})

	require.Error(t, err)
	var apiErr *zabbix.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, zabbix.MethodMaintenanceCreate, apiErr.Method)
	assert.Contains(t, err.Error(), "Incorrect value for field")
	assert.Equal(t, 1, srv.Logouts())
	assert.Zero(t, srv.OpenSessions())
}

func TestMaintenanceHostNotFound_E2E(t *testing.T) {
	srv := zabbixtest.NewServer()
	defer srv.Close()

	svc, cfg := newController(t, srv, nil)

	result, err := svc.Run(context.Background(), cfg, models.Request{Action: models.ActionCheck, Host: "ghost", Hours: 1})

	require.ErrorIs(t, err, maintenance.ErrHostNotFound)
	require.NotNil(t, result)
	assert.False(t, result.HostFound)
	assert.Equal(t, 1, srv.Logouts())
}
