package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gridwell/espi-self-access/api"
	"github.com/gridwell/espi-self-access/api/selfaccess"
	"github.com/gridwell/espi-self-access/espi"
	"github.com/gridwell/espi-self-access/interfaces"
)

// Tester drives a custodian's third party connectivity test sequence:
// a token exchange against the test endpoint, a service status check, a
// sample data download, and bulk identifier discovery. Custodians
// require the sequence before they start pushing production data.
type Tester struct {
	client    *selfaccess.Client
	endpoints api.Endpoints
	log       *slog.Logger
}

// Report is the outcome of a full test sequence. Steps after the first
// failure are not attempted and keep their zero values.
type Report struct {
	// TokenOK records whether the test token endpoint accepted the
	// client credentials.
	TokenOK bool

	// ServiceOnline records whether ReadServiceStatus reported the
	// service online.
	ServiceOnline bool

	// SampleDataOK records whether the sample data resource responded.
	SampleDataOK bool

	// BulkID is the bulk identifier discovered from the Authorization
	// resource, empty when discovery did not complete.
	BulkID interfaces.ThirdPartyID
}

// New creates a Tester from a Self Access client configuration. Token
// exchanges go to the custodian's test token endpoint instead of the
// production one.
func New(cfg *selfaccess.Config) (*Tester, error) {
	endpoints := cfg.Endpoints
	if endpoints == (api.Endpoints{}) {
		endpoints = api.DefaultEndpoints()
	}
	endpoints.TokenURL = endpoints.TestTokenURL

	clientCfg := *cfg
	clientCfg.Endpoints = endpoints

	client, err := selfaccess.New(&clientCfg)
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Tester{client: client, endpoints: endpoints, log: log}, nil
}

// Auth loads the credentials file at authPath and returns a ready
// Tester.
func Auth(authPath string, log *slog.Logger) (*Tester, error) {
	cfg, err := selfaccess.ConfigFromAuthFile(authPath, log)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// TestToken exchanges the client credentials at the test token
// endpoint.
func (t *Tester) TestToken(ctx context.Context) error {
	t.log.Info("requesting test access token", "url", t.endpoints.TokenURL)
	_, err := t.client.Token(ctx)
	return err
}

// TestServiceStatus confirms the custodian reports its service online.
func (t *Tester) TestServiceStatus(ctx context.Context) error {
	status, err := t.client.ServiceStatus(ctx)
	if err != nil {
		return err
	}
	if !status.Online() {
		return fmt.Errorf("custodian reports service offline, status %q", status.CurrentStatus)
	}
	return nil
}

// TestSampleData downloads the custodian's sample data resource. The
// custodian either answers with the data directly or queues an
// asynchronous push with 202; both complete the step.
func (t *Tester) TestSampleData(ctx context.Context) error {
	sampleURL := t.endpoints.SampleDataURL()
	t.log.Info("requesting sample data", "url", sampleURL)

	body, status, err := t.client.Resource(ctx, sampleURL)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return api.NewStatusError(status, body)
	}
	return nil
}

// DiscoverBulkID fetches the Authorization resource and extracts the
// bulk identifier from the batch bulk resource URI it references.
func (t *Tester) DiscoverBulkID(ctx context.Context) (interfaces.ThirdPartyID, error) {
	authURL := t.endpoints.AuthorizationURL()
	t.log.Info("requesting authorized resources", "url", authURL)

	body, status, err := t.client.Resource(ctx, authURL)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", api.NewStatusError(status, body)
	}

	notification, err := espi.ParseNotification(body)
	if err != nil {
		return "", err
	}

	prefix := t.endpoints.BulkPrefix()
	for _, resource := range notification.Resources {
		uri := resource.String()
		if !strings.HasPrefix(uri, prefix) {
			continue
		}
		return interfaces.NewThirdPartyID(strings.TrimSuffix(uri[len(prefix):], "/"))
	}
	return "", errors.New("authorization resource does not reference a bulk resource")
}

// CompleteTesting runs the full sequence, stopping at the first failed
// step. A bulk ID discovery failure does not fail the sequence, as
// custodians may populate the Authorization resource only after testing
// completes.
func (t *Tester) CompleteTesting(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := t.TestToken(ctx); err != nil {
		return report, fmt.Errorf("access token request failed: %w", err)
	}
	report.TokenOK = true

	if err := t.TestServiceStatus(ctx); err != nil {
		return report, fmt.Errorf("service status check failed: %w", err)
	}
	report.ServiceOnline = true

	if err := t.TestSampleData(ctx); err != nil {
		return report, fmt.Errorf("sample data request failed: %w", err)
	}
	report.SampleDataOK = true

	bulkID, err := t.DiscoverBulkID(ctx)
	if err != nil {
		t.log.Warn("bulk id discovery did not complete", "err", err)
		return report, nil
	}
	report.BulkID = bulkID

	t.log.Info("connectivity testing completed", "bulk_id", bulkID.String())
	return report, nil
}
