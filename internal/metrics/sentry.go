package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	// Create a span for API request tracking using the request context
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	// Set span tags
	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	// Set span status based on response
	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	// Set span description
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordPlanBuild records a playback plan build
func (m *SentryMetrics) RecordPlanBuild(ctx context.Context, events, issues int, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	// Attach the counts to the request transaction when there is one
	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("playback.events", fmt.Sprintf("%d", events))
		transaction.SetTag("playback.issues", fmt.Sprintf("%d", issues))
	}

	span := sentry.StartSpan(ctx, "playback.plan")
	defer span.Finish()

	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("events", events)
	span.SetData("issues", issues)
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Playback Plan: %d events", events)
}

// RecordExport records the size of an exported MIDI file
func (m *SentryMetrics) RecordExport(ctx context.Context, size int) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "playback.export")
	defer span.Finish()

	span.SetData("bytes", size)
	span.Status = sentry.SpanStatusOK
	span.Description = "MIDI Export"
}
