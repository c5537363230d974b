package httpserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gridwell/espi-self-access/common"
	"github.com/gridwell/espi-self-access/metrics"
	"go.uber.org/atomic"
)

// NotificationPath is the route the data custodian POSTs notifications to.
// The notification URI registered with the custodian must end with this
// path.
const NotificationPath = "/pgesmd"

const (
	// maxBodySize is the maximum allowed request body size (1MB)
	maxBodySize = 1024 * 1024
)

var (
	notificationsReceived = vmetrics.NewCounter("smd_notifications_received_total")
	notificationsRejected = vmetrics.NewCounter("smd_notifications_rejected_total")
)

type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// TLSCertificate serves the listener over HTTPS when set. The custodian
	// only delivers pushes to TLS endpoints, plain HTTP is for local use
	// behind a terminating proxy.
	TLSCertificate *tls.Certificate

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	// dispatchMu serializes handler invocations across requests.
	dispatchMu sync.Mutex

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    MessageHandler
}

func New(cfg *HTTPServerConfig, handler MessageHandler) (srv *Server, err error) {
	if handler == nil {
		return nil, errors.New("a message handler is required")
	}

	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		srv:        nil,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.TLSCertificate != nil {
		srv.srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*cfg.TLSCertificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger).Post(NotificationPath, srv.handleNotification)

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// handleNotification accepts one pushed payload and hands it to the
// message handler. The body must be non-empty XML of at most maxBodySize
// bytes, anything else is rejected before the handler runs.
func (srv *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	body, rerr := readNotificationBody(r)
	if rerr != nil {
		notificationsRejected.Inc()
		srv.log.Warn("Rejected notification",
			"err", rerr,
			slog.Int("status", rerr.StatusCode))
		http.Error(w, rerr.Error(), rerr.StatusCode)
		return
	}
	notificationsReceived.Inc()

	srv.dispatchMu.Lock()
	err := srv.handler.HandleMessage(r.Context(), body)
	srv.dispatchMu.Unlock()
	if err != nil {
		srv.log.Error("Notification handler failed", "err", err)
		http.Error(w, "failed to process notification", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// readNotificationBody enforces the push body contract.
func readNotificationBody(r *http.Request) ([]byte, *RequestError) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("failed to read request body: %w", err)}
	}
	if len(body) == 0 {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("empty request body")}
	}
	if len(body) > maxBodySize {
		return nil, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("request body exceeds %d bytes", maxBodySize)}
	}
	if !looksLikeXML(body) {
		return nil, &RequestError{StatusCode: http.StatusUnsupportedMediaType, Err: errors.New("request body is not xml")}
	}
	return body, nil
}

// looksLikeXML reports whether the body starts with an XML declaration or
// element, allowing a UTF-8 BOM and leading whitespace.
func looksLikeXML(body []byte) bool {
	trimmed := bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	trimmed = bytes.TrimLeft(trimmed, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	// Wait for the drain duration without blocking the request handler, so
	// load balancers have time to notice the readiness change.
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	// listener
	go func() {
		srv.log.Info("Starting HTTP server",
			"listenAddress", srv.cfg.ListenAddr,
			"tls", srv.srv.TLSConfig != nil)
		var err error
		if srv.srv.TLSConfig != nil {
			err = srv.srv.ListenAndServeTLS("", "")
		} else {
			err = srv.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

func (srv *Server) Shutdown() {
	// listener
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
