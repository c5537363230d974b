// Package flags holds the flag definitions and setup helpers shared by
// the collector daemon and the smdctl operator client.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gridwell/espi-self-access/api"
	"github.com/gridwell/espi-self-access/common"
	"github.com/gridwell/espi-self-access/httpserver"
	"github.com/urfave/cli/v2"
)

// SetupLogger builds the process logger from the common logging flags.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer builds the listener configuration from the server
// flags.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ApplyEndpointOverrides replaces endpoint fields for which an override
// flag was given. Flag overrides win over auth file overrides.
func ApplyEndpointOverrides(cCtx *cli.Context, endpoints *api.Endpoints) {
	if v := cCtx.String(TokenURLFlag.Name); v != "" {
		endpoints.TokenURL = v
	}
	if v := cCtx.String(TestTokenURLFlag.Name); v != "" {
		endpoints.TestTokenURL = v
	}
	if v := cCtx.String(UtilityURLFlag.Name); v != "" {
		endpoints.UtilityURL = v
	}
	if v := cCtx.String(APIPathFlag.Name); v != "" {
		endpoints.APIPath = v
	}
	if v := cCtx.String(StatusURLFlag.Name); v != "" {
		endpoints.StatusURL = v
	}
}

var AuthConfigFlag = &cli.StringFlag{
	Name:  "auth-config",
	Value: "auth/auth.json",
	Usage: "path to the JSON credentials file issued at registration",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "0.0.0.0:7999",
	Usage: "address to listen on for custodian notification pushes",
}

var ArchiveFlag = &cli.StringSliceFlag{
	Name:  "archive",
	Value: cli.NewStringSlice("file://data/espi_xml"),
	Usage: "storage backend URI to archive received XML to, repeatable (file://, s3://, ipfs://, vault://)",
}

var RequestOnStartFlag = &cli.BoolFlag{
	Name:  "request-on-start",
	Value: true,
	Usage: "request delivery of the latest usage at startup",
}

var FetchOnNotifyFlag = &cli.BoolFlag{
	Name:  "fetch-on-notify",
	Value: true,
	Usage: "follow resource URIs in notifications and archive the usage they reference",
}

var DisableTLSFlag = &cli.BoolFlag{
	Name:  "disable-tls",
	Value: false,
	Usage: "serve the listener over plain HTTP, for use behind a TLS terminating proxy",
}

var TokenURLFlag = &cli.StringFlag{
	Name:  "token-url",
	Usage: "override the custodian token endpoint",
}
var TestTokenURLFlag = &cli.StringFlag{
	Name:  "test-token-url",
	Usage: "override the custodian registration testing token endpoint",
}
var UtilityURLFlag = &cli.StringFlag{
	Name:  "utility-url",
	Usage: "override the custodian API base URL",
}
var APIPathFlag = &cli.StringFlag{
	Name:  "api-path",
	Usage: "override the Green Button resource tree path prefix",
}
var StatusURLFlag = &cli.StringFlag{
	Name:  "status-url",
	Usage: "override the ReadServiceStatus resource URL",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

// EndpointFlags override individual custodian URLs, for sandbox
// environments.
var EndpointFlags = []cli.Flag{
	TokenURLFlag,
	TestTokenURLFlag,
	UtilityURLFlag,
	APIPathFlag,
	StatusURLFlag,
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
