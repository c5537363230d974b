/*
Package httpserver implements the HTTPS listener that receives asynchronous
Share My Data pushes from the data custodian.

The custodian answers a bulk usage request with HTTP 202 and later POSTs the
result to the notification URI registered for the third party. The listener
accepts those POSTs on NotificationPath, enforces the body contract, and
hands the raw bytes to a MessageHandler exactly once per accepted request.
Handler invocations are serialized, concurrent pushes queue on a mutex
rather than being refused.

# Body Contract

A push body must be non-empty, at most 1MB, and start with an XML
declaration or element. Anything else is rejected with a 4xx status before
the message handler runs:

  - empty body: 400
  - body over the size limit: 413
  - body that is not XML: 415

A handler failure is answered with 500 so the custodian sees the push as
undelivered. The archive is content addressed, so a repeated push of the
same payload stores nothing new.

# Endpoints

  - POST /pgesmd - Receive a notification push
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

Prometheus metrics are served on a separate address, and /debug exposes
pprof when enabled.

# Example Usage

	handler := httpserver.NewUsageHandler(archive, client, logger)

	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               "0.0.0.0:7999",
		MetricsAddr:              "127.0.0.1:9090",
		Log:                      logger,
		TLSCertificate:           &clientCert,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              5 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, handler)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
