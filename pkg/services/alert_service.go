package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/retry"
)

// AlertSink delivers an alert somewhere a human will see it.
type AlertSink interface {
	Send(ctx context.Context, alert models.Alert) error
	Name() string
}

// NewAlertSink returns a webhook sink when a URL is configured and a log sink otherwise.
func NewAlertSink(cfg config.AlertsConfig, logger *zap.Logger) AlertSink {
	if cfg.WebhookURL == "" {
		return NewLogAlertSink(logger)
	}
	return NewWebhookAlertSink(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout})
}

type webhookAlertSink struct {
	url    string
	client *http.Client
}

// NewWebhookAlertSink posts alerts as JSON to url. 5xx and 429 responses
// and transport errors are retried.
func NewWebhookAlertSink(url string, client *http.Client) AlertSink {
	return &webhookAlertSink{url: url, client: client}
}

func (s *webhookAlertSink) Name() string { return "webhook" }

func (s *webhookAlertSink) Send(ctx context.Context, alert models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	return retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

type logAlertSink struct {
	logger *zap.Logger
}

// NewLogAlertSink writes alerts to the log at warn level.
func NewLogAlertSink(logger *zap.Logger) AlertSink {
	return &logAlertSink{logger: logger.Named("alerts")}
}

func (s *logAlertSink) Name() string { return "log" }

func (s *logAlertSink) Send(_ context.Context, alert models.Alert) error {
	s.logger.Warn("ALERT: "+alert.Title,
		zap.String("job_id", alert.JobID),
		zap.String("severity", string(alert.Severity)),
		zap.String("message", alert.Message),
		zap.String("report_id", alert.ReportID),
		zap.Strings("issues", alert.Issues))
	return nil
}

// AlertService fires alerts without blocking the caller.
type AlertService interface {
	// Notify hands alert to the sink in its own goroutine, bounded by the
	// configured timeout. Sink errors are logged, never returned.
	Notify(alert models.Alert)
	// Wait blocks until every pending notification has finished.
	Wait()
}

type alertService struct {
	sink    AlertSink
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewAlertService(sink AlertSink, timeout time.Duration, logger *zap.Logger) AlertService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &alertService{
		sink:    sink,
		timeout: timeout,
		logger:  logger.Named("alert-service"),
	}
}

var _ AlertService = (*alertService)(nil)

func (s *alertService) Notify(alert models.Alert) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Alert sink panicked",
					zap.String("sink", s.sink.Name()),
					zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.sink.Send(ctx, alert); err != nil {
			s.logger.Error("Failed to deliver alert",
				zap.String("sink", s.sink.Name()),
				zap.String("title", alert.Title),
				zap.Error(err))
			return
		}
		s.logger.Debug("Alert delivered",
			zap.String("sink", s.sink.Name()),
			zap.String("title", alert.Title))
	}()
}

func (s *alertService) Wait() {
	s.wg.Wait()
}
