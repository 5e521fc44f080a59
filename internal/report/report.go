// Package report renders the outcome of a maintenance run for the operator.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fgeck/zabbix-maintenance/internal/models"
	"github.com/fgeck/zabbix-maintenance/internal/services/maintenance"
	"gopkg.in/yaml.v3"
)

// Format selects how a result is printed.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an output format other than text, json or yaml.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w %q, use text, json or yaml", ErrUnknownFormat, s)
	}
}

// Render writes result to w. Times are shown in the local zone.
func Render(w io.Writer, format Format, result *models.ActionResult) error {
	return render(w, format, result, time.Local)
}

func render(w io.Writer, format Format, result *models.ActionResult, loc *time.Location) error {
	if result == nil {
		return nil
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		t := &textWriter{w: w, loc: loc}
		t.write(result)
		return t.err
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

type textWriter struct {
	w   io.Writer
	loc *time.Location
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) write(r *models.ActionResult) {
	if !r.HostFound {
		t.printf("Host %q not found on %s\n", r.Host, r.Server)
		return
	}

	switch r.Action {
	case models.ActionCheck:
		t.check(r)
	case models.ActionStop:
		if len(r.Deleted) == 0 {
			t.printf("Nothing to do.\n")
		}
		t.deleted(r)
	case models.ActionStart:
		t.deleted(r)
		if r.Created != nil {
			t.printf("Added a %s hour maintenance on host %q (maintenanceid %s, until %s)\n",
				maintenance.FormatPeriod(r.Created.Period()), r.Host, r.Created.ID, t.epoch(r.Created.ActiveTill))
		}
	}
}

func (t *textWriter) check(r *models.ActionResult) {
	if len(r.Maintenances) == 0 {
		t.printf("Host %q: no maintenance found.\n", r.Host)
		return
	}

	t.printf("Found %d maintenance item(s) for host %q:\n", len(r.Maintenances), r.Host)
	for _, m := range r.Maintenances {
		t.printf("%s: %s (%s - %s, %s hours)\n",
			m.ID, m.Name, t.epoch(m.ActiveSince), t.epoch(m.ActiveTill), maintenance.FormatPeriod(m.Period()))
	}
}

func (t *textWriter) deleted(r *models.ActionResult) {
	for _, id := range r.Deleted {
		t.printf("Deleted maintenance %s\n", id)
	}
}

func (t *textWriter) epoch(sec int64) string {
	return time.Unix(sec, 0).In(t.loc).Format("2006-01-02 15:04")
}
