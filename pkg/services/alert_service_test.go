package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func TestWebhookAlertSink_PostsJSON(t *testing.T) {
	var received models.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookAlertSink(srv.URL, srv.Client())
	err := sink.Send(context.Background(), models.Alert{
		JobID:    JobDailyIntegrity,
		Severity: models.SeverityCritical,
		Title:    "CRITICAL: 1 integrity issues found",
		Issues:   []string{"Pacientes in Citas: 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "webhook", sink.Name())
	assert.Equal(t, "CRITICAL: 1 integrity issues found", received.Title)
	assert.Equal(t, []string{"Pacientes in Citas: 3"}, received.Issues)
}

func TestWebhookAlertSink_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookAlertSink(srv.URL, srv.Client())
	require.NoError(t, sink.Send(context.Background(), models.Alert{Title: "x"}))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestWebhookAlertSink_ClientErrorIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewWebhookAlertSink(srv.URL, srv.Client())
	err := sink.Send(context.Background(), models.Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestNewAlertSink_SelectsByConfig(t *testing.T) {
	assert.Equal(t, "log", NewAlertSink(config.AlertsConfig{}, zap.NewNop()).Name())
	assert.Equal(t, "webhook", NewAlertSink(config.AlertsConfig{WebhookURL: "http://alerts.local/hook", Timeout: time.Second}, zap.NewNop()).Name())
}

func TestLogAlertSink_WritesWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := NewLogAlertSink(zap.New(core))

	require.NoError(t, sink.Send(context.Background(), models.Alert{Title: "Weekly analytics failed", JobID: JobWeeklyAnalytics}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ALERT: Weekly analytics failed", entries[0].Message)
	assert.Equal(t, JobWeeklyAnalytics, entries[0].ContextMap()["job_id"])
}

type funcSink struct {
	send func(ctx context.Context, alert models.Alert) error
}

func (f funcSink) Send(ctx context.Context, alert models.Alert) error { return f.send(ctx, alert) }
func (f funcSink) Name() string                                       { return "func" }

func TestAlertService_NotifyIsAsyncAndBounded(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	sink := funcSink{send: func(ctx context.Context, alert models.Alert) error {
		select {
		case <-release:
			delivered.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}

	svc := NewAlertService(sink, time.Second, zap.NewNop())
	svc.Notify(models.Alert{Title: "x"})
	// Notify returned while the sink is still blocked
	assert.Equal(t, int32(0), delivered.Load())

	close(release)
	svc.Wait()
	assert.Equal(t, int32(1), delivered.Load())
}

func TestAlertService_SinkErrorsAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := funcSink{send: func(context.Context, models.Alert) error { return errBoom }}

	svc := NewAlertService(sink, 50*time.Millisecond, zap.New(core))
	svc.Notify(models.Alert{Title: "Daily integrity check failed"})
	svc.Wait()

	require.Equal(t, 1, logs.FilterMessage("Failed to deliver alert").Len())
}

func TestAlertService_TimeoutCancelsSlowSink(t *testing.T) {
	var sawDeadline atomic.Bool
	sink := funcSink{send: func(ctx context.Context, _ models.Alert) error {
		<-ctx.Done()
		sawDeadline.Store(true)
		return ctx.Err()
	}}

	svc := NewAlertService(sink, 20*time.Millisecond, zap.NewNop())
	svc.Notify(models.Alert{Title: "x"})
	svc.Wait()
	assert.True(t, sawDeadline.Load())
}

func TestAlertService_RecoversSinkPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := funcSink{send: func(context.Context, models.Alert) error { panic("sink exploded") }}

	svc := NewAlertService(sink, time.Second, zap.New(core))
	svc.Notify(models.Alert{Title: "x"})
	svc.Wait()

	assert.Equal(t, 1, logs.FilterMessage("Alert sink panicked").Len())
}
