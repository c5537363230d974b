package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/gridwell/espi-self-access/espi"
	"github.com/gridwell/espi-self-access/interfaces"
)

var (
	resourcesFetched    = vmetrics.NewCounter("smd_usage_resources_fetched_total")
	resourceFetchErrors = vmetrics.NewCounter("smd_usage_resource_fetch_errors_total")
	archiveStores       = vmetrics.NewCounter("smd_archive_stores_total")
	archiveErrors       = vmetrics.NewCounter("smd_archive_errors_total")
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// MessageHandler consumes the raw body of a notification pushed by the
// data custodian. The listener invokes it exactly once per accepted
// request, serialized across requests.
type MessageHandler interface {
	HandleMessage(ctx context.Context, payload []byte) error
}

// UsageHandler is the production message handler. Every payload is
// archived verbatim before any interpretation. The payload is then parsed
// as a notification; when it references usage resources and a retriever is
// configured, each resource is fetched, archived, and parsed into interval
// readings.
//
// Fetch and archive failures make HandleMessage fail so the custodian's
// push is answered with an error; the archive is content addressed, so a
// repeated push is harmless. A payload that carries no resource URIs may be
// the usage feed itself and is parsed opportunistically, a payload that is
// not a usage feed is not an error.
type UsageHandler struct {
	archive   interfaces.StorageBackend
	retriever interfaces.UsageRetriever
	log       *slog.Logger
}

// NewUsageHandler creates a message handler archiving to the given backend.
//
// Parameters:
//   - archive: Storage backend receiving notification and usage payloads
//   - retriever: Client used to follow resource URIs, may be nil in which
//     case referenced resources are left unfetched
//   - log: Structured logger for operational insights
func NewUsageHandler(archive interfaces.StorageBackend, retriever interfaces.UsageRetriever, log *slog.Logger) *UsageHandler {
	return &UsageHandler{
		archive:   archive,
		retriever: retriever,
		log:       log,
	}
}

// HandleMessage archives and processes one pushed payload.
func (h *UsageHandler) HandleMessage(ctx context.Context, payload []byte) error {
	id, err := h.archive.Store(ctx, payload, interfaces.NotificationType)
	if err != nil {
		archiveErrors.Inc()
		return fmt.Errorf("failed to archive notification: %w", err)
	}
	archiveStores.Inc()

	h.log.Info("Archived notification",
		slog.String("content_id", id.String()),
		slog.Int("size", len(payload)))

	notification, err := espi.ParseNotification(payload)
	if err != nil {
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	if len(notification.Resources) == 0 {
		h.parseInlineUsage(payload)
		return nil
	}

	if h.retriever == nil {
		h.log.Info("Notification references resources but no retriever is configured",
			slog.Int("resources", len(notification.Resources)))
		return nil
	}

	var errs []error
	for _, resource := range notification.Resources {
		if err := h.processResource(ctx, resource); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", resource.String(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to process %d of %d resources: %v", len(errs), len(notification.Resources), errs)
	}

	return nil
}

// processResource follows one resource URI: fetch, archive, parse.
func (h *UsageHandler) processResource(ctx context.Context, resource interfaces.ResourceURI) error {
	data, err := h.retriever.FetchUsage(ctx, resource)
	if err != nil {
		resourceFetchErrors.Inc()
		h.log.Error("Failed to fetch usage resource",
			"err", err,
			slog.String("resource", resource.String()))
		return fmt.Errorf("failed to fetch usage resource: %w", err)
	}
	resourcesFetched.Inc()

	id, err := h.archive.Store(ctx, data, interfaces.UsageType)
	if err != nil {
		archiveErrors.Inc()
		h.log.Error("Failed to archive usage",
			"err", err,
			slog.String("resource", resource.String()))
		return fmt.Errorf("failed to archive usage: %w", err)
	}
	archiveStores.Inc()

	readings, err := espi.ParseUsage(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse usage feed: %w", err)
	}

	h.log.Info("Retrieved usage feed",
		slog.String("resource", resource.String()),
		slog.String("content_id", id.String()),
		slog.Int("readings", len(readings)))

	return nil
}

// parseInlineUsage tries to interpret a payload without resource URIs as a
// usage feed pushed inline.
func (h *UsageHandler) parseInlineUsage(payload []byte) {
	readings, err := espi.ParseUsage(bytes.NewReader(payload))
	if err != nil {
		h.log.Debug("Payload carries no usage readings", "err", err)
		return
	}

	h.log.Info("Parsed inline usage feed", slog.Int("readings", len(readings)))
}
