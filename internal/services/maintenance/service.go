// Package maintenance starts, stops and checks maintenance windows of a host.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/fgeck/zabbix-maintenance/internal/services/notify"
	"github.com/fgeck/zabbix-maintenance/internal/services/zabbix"
	"github.com/rs/zerolog"
)

var (
	// ErrUsage is returned for requests that make no sense, e.g. delete-all on start.
	ErrUsage = errors.New("usage error")
	// ErrValidation is returned when the requested period is out of range.
	ErrValidation = errors.New("validation error")
	// ErrAuth is returned when login fails.
	ErrAuth = errors.New("authentication failed")
	// ErrHostNotFound is returned when the host does not exist on the server.
	ErrHostNotFound = errors.New("host not found")
	// ErrAmbiguous is returned when several windows match and nothing selects one.
	ErrAmbiguous = errors.New("multiple maintenance items found")
)

// Service defines the interface for the maintenance controller.
type Service interface {
	Run(ctx context.Context, cfg models.Config, req models.Request) (*models.ActionResult, error)
}

// Impl implements the maintenance Service interface.
type Impl struct {
	client    zabbix.Client
	notifySvc notify.Service
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new maintenance controller talking to the configured server.
func New(logger zerolog.Logger, cfg models.Config) *Impl {
	return &Impl{
		client:    zabbix.New(logger, cfg.Zabbix),
		notifySvc: notify.New(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// NewWithServices creates a new maintenance controller with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	client zabbix.Client,
	notifySvc notify.Service,
	now func() time.Time,
) *Impl {
	return &Impl{
		client:    client,
		notifySvc: notifySvc,
		logger:    logger,
		now:       now,
	}
}

// Run performs one action for one host.
// Logout is attempted once on every path after a successful login.
func (s *Impl) Run(ctx context.Context, cfg models.Config, req models.Request) (*models.ActionResult, error) {
	startTime := time.Now()

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	filter := Filter(req)
	result := &models.ActionResult{
		Action:       req.Action,
		Host:         req.Host,
		Server:       cfg.Zabbix.Server,
		Name:         Name(req.Host, req.Keyword),
		Maintenances: []models.Maintenance{},
	}
	defer func() { result.Duration = time.Since(startTime) }()

	s.logger.Info().
		Str("action", string(req.Action)).
		Str("host", req.Host).
		Str("server", cfg.Zabbix.Server).
		Msg("starting maintenance run")

	session, err := s.client.Login(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	defer s.logout(ctx, session)

	host, err := s.client.GetHost(ctx, session, req.Host)
	if errors.Is(err, zabbix.ErrNotFound) {
		return result, fmt.Errorf("%w: %q on %s", ErrHostNotFound, req.Host, cfg.Zabbix.Server)
	}
	if err != nil {
		return result, fmt.Errorf("resolving host: %w", err)
	}
	result.HostFound = true
	result.HostID = host.ID

	found, err := s.client.GetMaintenances(ctx, session, host.ID, filter)
	if err != nil {
		return result, fmt.Errorf("looking up maintenance: %w", err)
	}
	result.Maintenances = found

	s.logger.Debug().
		Str("hostid", host.ID).
		Int("matches", len(found)).
		Msg("maintenance lookup done")

	switch req.Action {
	case models.ActionCheck:
		return result, nil
	case models.ActionStop:
		err = s.stop(ctx, session, req, result)
	case models.ActionStart:
		err = s.start(ctx, session, req, host, result)
	}
	if err != nil {
		return result, err
	}

	if cfg.Notify != nil && (len(result.Deleted) > 0 || result.Created != nil) {
		s.sendNotification(ctx, *cfg.Notify, result)
	}

	s.logger.Info().
		Str("action", string(req.Action)).
		Dur("duration", time.Since(startTime)).
		Msg("maintenance run completed")

	return result, nil
}

func (s *Impl) stop(ctx context.Context, session *zabbix.Session, req models.Request, result *models.ActionResult) error {
	found := result.Maintenances

	var targets []models.Maintenance
	switch {
	case len(found) == 0:
		s.logger.Info().Str("host", req.Host).Msg("no maintenance found, nothing to do")
		return nil
	case len(found) == 1:
		targets = found
	case req.DeleteAll:
		targets = found
	default:
		m, ok := pickByKeyword(req, found, result.Name)
		if !ok {
			return fmt.Errorf("%w: %d windows match %q, use --keyword or --delete-all to specify your request",
				ErrAmbiguous, len(found), Filter(req).Name)
		}
		targets = []models.Maintenance{m}
	}

	for _, m := range targets {
		if err := s.delete(ctx, session, m, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Impl) start(
	ctx context.Context,
	session *zabbix.Session,
	req models.Request,
	host *models.Host,
	result *models.ActionResult,
) error {
	found := result.Maintenances

	switch {
	case len(found) == 0:
	case len(found) == 1:
		if err := s.delete(ctx, session, found[0], result); err != nil {
			return err
		}
	default:
		m, ok := pickByKeyword(req, found, result.Name)
		if !ok {
			return fmt.Errorf("%w: %d windows match %q, use --keyword to specify your request",
				ErrAmbiguous, len(found), Filter(req).Name)
		}
		if err := s.delete(ctx, session, m, result); err != nil {
			return err
		}
	}

	period := PeriodSeconds(req.Hours)
	window := NewWindow(result.Name, host.ID, s.now().Unix(), period)

	id, err := s.client.CreateMaintenance(ctx, session, window)
	if err != nil {
		return fmt.Errorf("creating maintenance %q: %w", window.Name, err)
	}
	window.ID = id
	result.Created = &window

	s.logger.Info().
		Str("maintenanceid", id).
		Str("name", window.Name).
		Str("period", FormatPeriod(period)).
		Int64("active_till", window.ActiveTill).
		Msg("maintenance created")

	return nil
}

// pickByKeyword selects the window named exactly like the request when a keyword was given.
func pickByKeyword(req models.Request, found []models.Maintenance, name string) (models.Maintenance, bool) {
	if req.Keyword == "" {
		return models.Maintenance{}, false
	}
	return selectExact(found, name)
}

func (s *Impl) delete(ctx context.Context, session *zabbix.Session, m models.Maintenance, result *models.ActionResult) error {
	if err := s.client.DeleteMaintenance(ctx, session, m.ID); err != nil {
		return fmt.Errorf("deleting maintenance %s: %w", m.ID, err)
	}
	result.Deleted = append(result.Deleted, m.ID)

	s.logger.Info().
		Str("maintenanceid", m.ID).
		Str("name", m.Name).
		Msg("maintenance deleted")

	return nil
}

// logout runs even when ctx was cancelled; its failure never changes the outcome.
func (s *Impl) logout(ctx context.Context, session *zabbix.Session) {
	if err := s.client.Logout(context.WithoutCancel(ctx), session); err != nil {
		s.logger.Warn().Err(err).Msg("failed to log out")
		return
	}
	s.logger.Debug().Msg("logged out")
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.NotifyConfig, result *models.ActionResult) {
	msg := models.NotifyMessage{
		Action:  result.Action,
		Host:    result.Host,
		Server:  result.Server,
		Name:    result.Name,
		Deleted: result.Deleted,
		Created: result.Created,
	}
	if result.Created != nil {
		msg.PeriodHuman = FormatPeriod(result.Created.Period())
	}

	notifyResult, err := s.notifySvc.Send(ctx, cfg, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send notification")
		return
	}
	if notifyResult.Error != nil {
		s.logger.Warn().Err(notifyResult.Error).Int("sent", notifyResult.MessagesSent).Msg("failed to send notification")
		return
	}

	s.logger.Info().Int("sent", notifyResult.MessagesSent).Msg("notification sent")
}
