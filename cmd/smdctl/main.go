package main

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gridwell/espi-self-access/api/registration"
	"github.com/gridwell/espi-self-access/api/selfaccess"
	"github.com/gridwell/espi-self-access/cmd/flags"
	"github.com/gridwell/espi-self-access/espi"
	"github.com/gridwell/espi-self-access/interfaces"
	"github.com/gridwell/espi-self-access/storage"
	"github.com/urfave/cli/v2"
)

var saveDirFlag = &cli.StringFlag{
	Name:  "save-dir",
	Usage: "write the fetched XML into this directory instead of stdout",
}
var dateFlag = &cli.StringFlag{
	Name:     "date",
	Required: true,
	Usage:    "calendar day to request, formatted 2006-01-02 (custodian Pacific time)",
}
var startFlag = &cli.StringFlag{
	Name:     "start",
	Required: true,
	Usage:    "start of the published range, RFC 3339",
}
var endFlag = &cli.StringFlag{
	Name:  "end",
	Usage: "end of the published range, RFC 3339; empty means now",
}
var daysFlag = &cli.IntFlag{
	Name:  "days",
	Value: selfaccess.DefaultHistoryDays,
	Usage: "number of trailing days to request",
}
var checkDNSFlag = &cli.StringFlag{
	Name:  "check-dns",
	Usage: "resolve this notification endpoint hostname before testing",
}
var dnsResolverFlag = &cli.StringFlag{
	Name:  "dns-resolver",
	Usage: "resolver address for --check-dns, host:port",
}
var contentTypeFlag = &cli.StringFlag{
	Name:  "type",
	Value: "usage",
	Usage: "archive namespace to fetch from: usage or notification",
}

func main() {
	app := &cli.App{
		Name:  "smdctl",
		Usage: "Operate a Share My Data Self Access registration from the command line",
		Flags: append([]cli.Flag{
			flags.AuthConfigFlag,
			flags.LogJSONFlag,
			flags.LogDebugFlag,
			flags.LogUIDFlag,
			flags.LogServiceFlag,
		}, flags.EndpointFlags...),
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Check whether the custodian reports its service online",
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}

					status, err := client.ServiceStatus(cCtx.Context)
					if err != nil {
						return err
					}
					if !status.Online() {
						fmt.Printf("service offline, status %q\n", status.CurrentStatus)
						return nil
					}
					fmt.Println("service online")
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "Exchange the client credentials for an access token and print it",
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}

					token, err := client.Token(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
			{
				Name:  "request",
				Usage: "Ask the custodian to deliver usage to the registered notification URI",
				Subcommands: []*cli.Command{
					{
						Name:  "latest",
						Usage: "Request the most recent usage",
						Action: func(cCtx *cli.Context) error {
							client, err := newClient(cCtx)
							if err != nil {
								return err
							}
							if err := client.RequestLatestUsage(cCtx.Context); err != nil {
								return err
							}
							fmt.Printf("request accepted, awaiting push for %s\n", client.BulkResourceURL())
							return nil
						},
					},
					{
						Name:  "date",
						Usage: "Request one calendar day of usage",
						Flags: []cli.Flag{dateFlag},
						Action: func(cCtx *cli.Context) error {
							client, err := newClient(cCtx)
							if err != nil {
								return err
							}
							if err := client.RequestUsageDate(cCtx.Context, cCtx.String(dateFlag.Name)); err != nil {
								return err
							}
							fmt.Printf("request accepted for %s, awaiting push\n", cCtx.String(dateFlag.Name))
							return nil
						},
					},
					{
						Name:  "range",
						Usage: "Request usage published between two instants",
						Flags: []cli.Flag{startFlag, endFlag},
						Action: func(cCtx *cli.Context) error {
							client, err := newClient(cCtx)
							if err != nil {
								return err
							}

							start, err := time.Parse(time.RFC3339, cCtx.String(startFlag.Name))
							if err != nil {
								return fmt.Errorf("invalid --start: %w", err)
							}
							var end time.Time
							if v := cCtx.String(endFlag.Name); v != "" {
								end, err = time.Parse(time.RFC3339, v)
								if err != nil {
									return fmt.Errorf("invalid --end: %w", err)
								}
							}

							if err := client.RequestUsageRange(cCtx.Context, start, end); err != nil {
								return err
							}
							fmt.Println("request accepted, awaiting push")
							return nil
						},
					},
					{
						Name:  "historical",
						Usage: "Request usage over the trailing number of days",
						Flags: []cli.Flag{daysFlag},
						Action: func(cCtx *cli.Context) error {
							client, err := newClient(cCtx)
							if err != nil {
								return err
							}
							if err := client.RequestHistoricalUsage(cCtx.Context, cCtx.Int(daysFlag.Name)); err != nil {
								return err
							}
							fmt.Printf("request accepted for the trailing %d days, awaiting push\n", cCtx.Int(daysFlag.Name))
							return nil
						},
					},
				},
			},
			{
				Name:      "fetch",
				Usage:     "Fetch a usage resource referenced by a notification",
				ArgsUsage: "<resource-uri>",
				Flags:     []cli.Flag{saveDirFlag},
				Action: func(cCtx *cli.Context) error {
					resource, err := interfaces.NewResourceURI(cCtx.Args().First())
					if err != nil {
						return err
					}

					client, err := newClient(cCtx)
					if err != nil {
						return err
					}

					data, err := client.FetchUsage(cCtx.Context, resource)
					if err != nil {
						return err
					}

					if dir := cCtx.String(saveDirFlag.Name); dir != "" {
						path, err := espi.Save(dir, "", data)
						if err != nil {
							return err
						}
						fmt.Println(path)
						return nil
					}

					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:      "parse",
				Usage:     "Parse a Green Button usage feed into interval readings",
				ArgsUsage: "<file>",
				Action: func(cCtx *cli.Context) error {
					f, err := os.Open(cCtx.Args().First())
					if err != nil {
						return err
					}
					defer f.Close()

					readings, err := espi.ParseUsage(f)
					if err != nil {
						return err
					}

					for _, r := range readings {
						fmt.Printf("%s\t%ds\t%d Wh\n", r.StartTime().Format(time.RFC3339), r.Duration, r.WattHours)
					}
					return nil
				},
			},
			{
				Name:      "bulk-id",
				Usage:     "Print the bulk identifier a pushed document references",
				ArgsUsage: "<file>",
				Action: func(cCtx *cli.Context) error {
					f, err := os.Open(cCtx.Args().First())
					if err != nil {
						return err
					}
					defer f.Close()

					id, err := espi.BulkID(f)
					if err != nil {
						return err
					}
					fmt.Println(id)
					return nil
				},
			},
			{
				Name:  "register",
				Usage: "Run the custodian's connectivity test sequence",
				Flags: []cli.Flag{checkDNSFlag, dnsResolverFlag},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					if host := cCtx.String(checkDNSFlag.Name); host != "" {
						addrs, err := registration.CheckEndpointDNS(host, cCtx.String(dnsResolverFlag.Name))
						if err != nil {
							return fmt.Errorf("notification endpoint DNS check failed: %w", err)
						}
						fmt.Printf("%s resolves to %s\n", host, strings.Join(addrs, ", "))
					}

					cfg, err := clientConfig(cCtx, logger)
					if err != nil {
						return err
					}

					tester, err := registration.New(cfg)
					if err != nil {
						return err
					}

					report, testErr := tester.CompleteTesting(cCtx.Context)
					encoded, _ := json.Marshal(report)
					fmt.Println(string(encoded))
					return testErr
				},
			},
			{
				Name:  "archive",
				Usage: "Operate on the received XML archive",
				Subcommands: []*cli.Command{
					{
						Name:      "get",
						Usage:     "Fetch archived XML by content ID and write it to stdout",
						ArgsUsage: "<content-id>",
						Flags:     []cli.Flag{flags.ArchiveFlag, contentTypeFlag},
						Action: func(cCtx *cli.Context) error {
							logger := flags.SetupLogger(cCtx)

							id, err := interfaces.NewContentIDFromHex(cCtx.Args().First())
							if err != nil {
								return err
							}

							var contentType interfaces.ContentType
							switch cCtx.String(contentTypeFlag.Name) {
							case "usage":
								contentType = interfaces.UsageType
							case "notification":
								contentType = interfaces.NotificationType
							default:
								return fmt.Errorf("unknown archive namespace %q", cCtx.String(contentTypeFlag.Name))
							}

							var factory interfaces.StorageBackendFactory = storage.NewStorageBackendFactory(logger)
							// Vault backends need the client certificate; skip
							// quietly when no auth file is around.
							if cfg, err := clientConfig(cCtx, logger); err == nil {
								clientCert := cfg.Certificate
								factory = factory.WithTLSAuth(func() (tls.Certificate, error) { return clientCert, nil })
							}

							var locations []interfaces.StorageBackendLocation
							for _, uri := range cCtx.StringSlice(flags.ArchiveFlag.Name) {
								locations = append(locations, interfaces.StorageBackendLocation(uri))
							}

							archive, err := factory.CreateMultiBackend(locations)
							if err != nil {
								return err
							}

							data, err := archive.Fetch(cCtx.Context, id, contentType)
							if err != nil {
								return err
							}
							_, err = os.Stdout.Write(data)
							return err
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// clientConfig loads the auth file named by --auth-config and applies any
// endpoint override flags.
func clientConfig(cCtx *cli.Context, logger *slog.Logger) (*selfaccess.Config, error) {
	cfg, err := selfaccess.ConfigFromAuthFile(cCtx.String(flags.AuthConfigFlag.Name), logger)
	if err != nil {
		return nil, err
	}
	flags.ApplyEndpointOverrides(cCtx, &cfg.Endpoints)
	return cfg, nil
}

// newClient builds an authenticated Self Access client from the global
// flags.
func newClient(cCtx *cli.Context) (*selfaccess.Client, error) {
	cfg, err := clientConfig(cCtx, flags.SetupLogger(cCtx))
	if err != nil {
		return nil, err
	}
	return selfaccess.New(cfg)
}
