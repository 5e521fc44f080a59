// Package notify sends maintenance change notifications through shoutrrr.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/rs/zerolog"
)

// Service defines the interface for notification operations.
type Service interface {
	Send(ctx context.Context, cfg models.NotifyConfig, msg models.NotifyMessage) (*models.NotifyResult, error)
}

// Sender abstracts message dispatch so the service can be tested
// without hitting real services.
type Sender interface {
	Send(url, message string) error
}

// ShoutrrrSender dispatches via the shoutrrr library.
type ShoutrrrSender struct{}

// Send delivers message to the service behind url.
func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Impl implements the notify Service interface.
type Impl struct {
	sender Sender
	logger zerolog.Logger
}

// New creates a new notify service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		sender: ShoutrrrSender{},
		logger: logger,
	}
}

// NewWithSender creates a new notify service with a custom sender (for testing).
func NewWithSender(logger zerolog.Logger, sender Sender) *Impl {
	return &Impl{
		sender: sender,
		logger: logger,
	}
}

// Send delivers msg to every configured URL. Failures are collected in the result.
func (s *Impl) Send(ctx context.Context, cfg models.NotifyConfig, msg models.NotifyMessage) (*models.NotifyResult, error) {
	result := &models.NotifyResult{}

	text := s.formatMessage(msg)

	var errs []error
	for i, url := range cfg.URLs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		s.logger.Debug().Int("service", i).Msg("sending notification")

		if err := s.sender.Send(url, text); err != nil {
			// the URL may embed credentials, so only its position is reported
			errs = append(errs, fmt.Errorf("notification service #%d: %w", i, err))
			continue
		}
		result.MessagesSent++
	}

	result.Error = errors.Join(errs...)
	return result, nil
}

func (s *Impl) formatMessage(msg models.NotifyMessage) string {
	var b bytes.Buffer

	switch {
	case msg.Created != nil:
		b.WriteString(fmt.Sprintf("Maintenance started on host %s\n", msg.Host))
		b.WriteString(fmt.Sprintf("Name: %s (id %s)\n", msg.Created.Name, msg.Created.ID))
		b.WriteString(fmt.Sprintf("Duration: %s hours\n", msg.PeriodHuman))
		b.WriteString(fmt.Sprintf("Until: %s\n", formatEpoch(msg.Created.ActiveTill)))
		if len(msg.Deleted) > 0 {
			b.WriteString(fmt.Sprintf("Replaced: %s\n", strings.Join(msg.Deleted, ", ")))
		}
	default:
		b.WriteString(fmt.Sprintf("Maintenance stopped on host %s\n", msg.Host))
		b.WriteString(fmt.Sprintf("Deleted: %s\n", strings.Join(msg.Deleted, ", ")))
	}
	b.WriteString(fmt.Sprintf("Server: %s", msg.Server))

	return b.String()
}

// formatEpoch formats epoch seconds in local time.
func formatEpoch(sec int64) string {
	return time.Unix(sec, 0).Format("2006-01-02 15:04:05")
}
