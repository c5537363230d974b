package main

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridwell/espi-self-access/api/selfaccess"
	"github.com/gridwell/espi-self-access/cmd/flags"
	"github.com/gridwell/espi-self-access/httpserver"
	"github.com/gridwell/espi-self-access/interfaces"
	"github.com/gridwell/espi-self-access/storage"
	"github.com/urfave/cli/v2"
)

var cliFlags = append([]cli.Flag{
	flags.AuthConfigFlag,
	flags.ListenAddrFlag,
	flags.ArchiveFlag,
	flags.RequestOnStartFlag,
	flags.FetchOnNotifyFlag,
	flags.DisableTLSFlag,
}, append(flags.EndpointFlags, flags.CommonFlags...)...)

func main() {
	app := &cli.App{
		Name:  "collector",
		Usage: "Receive and archive Green Button usage pushed by the data custodian",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			authPath := cCtx.String(flags.AuthConfigFlag.Name)
			clientCfg, err := selfaccess.ConfigFromAuthFile(authPath, logger)
			if err != nil {
				logger.Error("Failed to load auth config", "err", err, "path", authPath)
				return err
			}
			flags.ApplyEndpointOverrides(cCtx, &clientCfg.Endpoints)

			client, err := selfaccess.New(clientCfg)
			if err != nil {
				logger.Error("Failed to create Self Access client", "err", err)
				return err
			}

			// Vault archive backends authenticate with the same client
			// certificate the custodian knows.
			clientCert := clientCfg.Certificate
			factory := storage.NewStorageBackendFactory(logger).
				WithTLSAuth(func() (tls.Certificate, error) { return clientCert, nil })

			var locations []interfaces.StorageBackendLocation
			for _, uri := range cCtx.StringSlice(flags.ArchiveFlag.Name) {
				locations = append(locations, interfaces.StorageBackendLocation(uri))
			}

			archive, err := factory.CreateMultiBackend(locations)
			if err != nil {
				logger.Error("Failed to create archive backends", "err", err)
				return err
			}
			logger.Info("Archive configured", "location", archive.LocationURI())

			var retriever interfaces.UsageRetriever
			if cCtx.Bool(flags.FetchOnNotifyFlag.Name) {
				retriever = client
			}
			handler := httpserver.NewUsageHandler(archive, retriever, logger)

			cfg := flags.ConfigureServer(cCtx, logger)
			if !cCtx.Bool(flags.DisableTLSFlag.Name) {
				cfg.TLSCertificate = &clientCert
			}

			srv, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			if cCtx.Bool(flags.RequestOnStartFlag.Name) {
				// A failed request leaves the listener useful, the custodian
				// still pushes on its own schedule.
				if err := client.RequestLatestUsage(context.Background()); err != nil {
					logger.Error("Startup usage request failed", "err", err)
				}
			}

			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Collector is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			srv.Shutdown()
			logger.Info("Collector shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
