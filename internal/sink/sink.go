// Package sink implements the best-effort bookkeeper event client
// (§5 "External interfaces"): general, series, and registration events
// posted to a configured HTTP endpoint. Grounded on
// original_source/common/monitor.py's Monitor class, re-expressed with
// github.com/hashicorp/go-retryablehttp for the bounded retry-with-backoff
// behavior the Python version gets from nothing (a single requests.post
// with no retry at all). Every failure here is swallowed: the core must
// keep routing and dispatching even when the bookkeeper is unreachable.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hermes-router/hermes/internal/errs"
)

// GeneralEvent is a Hermes_Event in the original source: module-level
// occurrences not tied to one series.
type GeneralEvent string

const (
	EventBoot             GeneralEvent = "BOOT"
	EventShutdown         GeneralEvent = "SHUTDOWN"
	EventShutdownRequest  GeneralEvent = "SHUTDOWN_REQUEST"
	EventConfigUpdate     GeneralEvent = "CONFIG_UPDATE"
	EventProcessing       GeneralEvent = "PROCESSING"
)

// SeriesEvent is a Series_Event in the original source: occurrences tied
// to one series UID.
type SeriesEvent string

const (
	SeriesRegistered SeriesEvent = "REGISTERED"
	SeriesRoute      SeriesEvent = "ROUTE"
	SeriesDiscard    SeriesEvent = "DISCARD"
	SeriesDispatch   SeriesEvent = "DISPATCH"
	SeriesMove       SeriesEvent = "MOVE"
	SeriesError      SeriesEvent = "ERROR"
	SeriesSuspend    SeriesEvent = "SUSPEND"
)

// Severity mirrors the original source's Severity enum.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Sink posts routing/dispatch events to the bookkeeper. A zero-value
// Sink with no Address configured is a no-op: every Send* call returns
// immediately without posting, matching the original source's "if not
// self.bookkeeper_address: return" guard.
type Sink struct {
	address    string
	senderName string
	client     *retryablehttp.Client
}

// New builds a Sink that posts to address (host:port, no scheme) as the
// named sender. An empty address disables the sink.
func New(address, senderName string) *Sink {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.HTTPClient.Timeout = 2 * time.Second
	client.Logger = nil

	return &Sink{
		address:    address,
		senderName: senderName,
		client:     client,
	}
}

func (s *Sink) enabled() bool { return s != nil && s.address != "" }

// SendEvent reports a general, non-series event.
func (s *Sink) SendEvent(ctx context.Context, event GeneralEvent, severity Severity, description string) {
	s.post(ctx, "/hermes-event", map[string]any{
		"sender":      s.senderName,
		"event":       event,
		"severity":    severity,
		"description": description,
	})
}

// SendSeriesEvent reports an event tied to one series.
func (s *Sink) SendSeriesEvent(ctx context.Context, event SeriesEvent, seriesUID string, fileCount int, target, info string) {
	s.post(ctx, "/series-event", map[string]any{
		"sender":     s.senderName,
		"event":      event,
		"series_uid": seriesUID,
		"file_count": fileCount,
		"target":     target,
		"info":       info,
	})
}

// RegisterSeries reports a newly-received, fully-assembled series and its
// tag set.
func (s *Sink) RegisterSeries(ctx context.Context, tags map[string]any) {
	s.post(ctx, "/register-series", tags)
}

func (s *Sink) post(ctx context.Context, path string, payload any) {
	if !s.enabled() {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("sink: marshal event", "path", path, "error", err)
		return
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, "http://"+s.address+path, bytes.NewReader(body))
	if err != nil {
		slog.Warn("sink: build request", "path", path, "error", fmt.Errorf("%w: %v", errs.ErrEventSinkUnreachable, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("sink: post failed", "path", path, "error", fmt.Errorf("%w: %v", errs.ErrEventSinkUnreachable, err))
		return
	}
	_ = resp.Body.Close()
}
