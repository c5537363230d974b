package selfaccess

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/gridwell/espi-self-access/api"
	"github.com/gridwell/espi-self-access/config"
	"github.com/gridwell/espi-self-access/espi"
	"github.com/gridwell/espi-self-access/interfaces"
)

const (
	// tokenExpiryLeeway is how close to expiry a cached access token may
	// get before it is refreshed.
	tokenExpiryLeeway = 5 * time.Second

	// clientTimeout bounds any single custodian request.
	clientTimeout = 2 * time.Minute

	// DefaultHistoryDays is the custodian's maximum usage history window.
	DefaultHistoryDays = 730

	// dayWindowSeconds spans one calendar day of hourly intervals, from
	// the first interval's start to the last interval's start.
	dayWindowSeconds = 82800
)

var tokenRefreshes = vmetrics.NewCounter("smd_token_refreshes_total")

// Config contains all parameters for the Self Access API client.
type Config struct {
	// ThirdPartyID is the bulk identifier the custodian assigned at
	// registration. Required for bulk usage requests.
	ThirdPartyID interfaces.ThirdPartyID

	// ClientID and ClientSecret authenticate token requests.
	ClientID     string
	ClientSecret string

	// Certificate is the TLS client certificate registered with the
	// custodian. Every request presents it.
	Certificate tls.Certificate

	// Endpoints names the custodian URLs. The zero value selects the
	// production defaults.
	Endpoints api.Endpoints

	// HTTPClient overrides the mutually authenticated client. Tests use
	// this; production leaves it nil.
	HTTPClient *http.Client

	// Log is the structured logger for request lifecycle events.
	Log *slog.Logger
}

// Client talks to a data custodian's Self Access API. It caches the
// access token and refreshes it shortly before expiry, so callers never
// handle tokens directly. Safe for concurrent use.
type Client struct {
	thirdParty interfaces.ThirdPartyID
	endpoints  api.Endpoints
	bulkURL    string
	authHeader string
	httpClient *http.Client
	log        *slog.Logger

	mu             sync.Mutex
	accessToken    string
	accessTokenExp time.Time
}

// New creates a Self Access API client from the provided configuration.
func New(cfg *Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client credentials are required")
	}
	if cfg.HTTPClient == nil && len(cfg.Certificate.Certificate) == 0 {
		return nil, errors.New("a client certificate is required")
	}

	endpoints := cfg.Endpoints
	if endpoints == (api.Endpoints{}) {
		endpoints = api.DefaultEndpoints()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: clientTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{cfg.Certificate},
					MinVersion:   tls.VersionTLS12,
				},
			},
		}
	}

	basic := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))

	return &Client{
		thirdParty: cfg.ThirdPartyID,
		endpoints:  endpoints,
		bulkURL:    endpoints.BulkResourceURL(cfg.ThirdPartyID),
		authHeader: "Basic " + basic,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// ConfigFromAuthFile builds a client configuration from the credentials
// file at authPath. Endpoint overrides in the file replace the
// production defaults.
func ConfigFromAuthFile(authPath string, log *slog.Logger) (*Config, error) {
	authCfg, err := config.Load(authPath)
	if err != nil {
		return nil, err
	}

	cert, err := authCfg.Certificate()
	if err != nil {
		return nil, err
	}

	tpid, err := authCfg.ThirdParty()
	if err != nil {
		return nil, err
	}

	endpoints := api.DefaultEndpoints()
	if authCfg.TokenURL != "" {
		endpoints.TokenURL = authCfg.TokenURL
	}
	if authCfg.UtilityURL != "" {
		endpoints.UtilityURL = authCfg.UtilityURL
	}
	if authCfg.APIPath != "" {
		endpoints.APIPath = authCfg.APIPath
	}
	if authCfg.StatusURL != "" {
		endpoints.StatusURL = authCfg.StatusURL
	}

	return &Config{
		ThirdPartyID: tpid,
		ClientID:     authCfg.ClientID,
		ClientSecret: authCfg.ClientSecret,
		Certificate:  cert,
		Endpoints:    endpoints,
		Log:          log,
	}, nil
}

// Auth loads the credentials file at authPath and returns a ready
// client.
func Auth(authPath string, log *slog.Logger) (*Client, error) {
	cfg, err := ConfigFromAuthFile(authPath, log)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// BulkResourceURL returns the bulk resource this client requests usage
// from.
func (c *Client) BulkResourceURL() string {
	return c.bulkURL
}

// Token returns a valid access token, refreshing the cached one when it
// is within five seconds of expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.bearer(ctx)
}

// ServiceStatus fetches and parses the custodian's ReadServiceStatus
// resource.
func (c *Client) ServiceStatus(ctx context.Context) (espi.ServiceStatus, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return espi.ServiceStatus{}, err
	}

	c.log.Debug("requesting service status", "url", c.endpoints.StatusURL)
	body, status, err := c.get(ctx, c.endpoints.StatusURL, token)
	if err != nil {
		return espi.ServiceStatus{}, err
	}
	if status != http.StatusOK {
		return espi.ServiceStatus{}, api.NewStatusError(status, body)
	}

	return espi.ParseServiceStatus(bytes.NewReader(body))
}

// Resource performs a bearer authenticated GET of an arbitrary custodian
// resource and returns the body and status code. Most callers want
// FetchUsage; registration testing probes resources whose success
// statuses differ.
func (c *Client) Resource(ctx context.Context, rawURL string) ([]byte, int, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, 0, err
	}
	return c.get(ctx, rawURL, token)
}

// RequestLatestUsage asks the custodian to deliver the most recent
// usage for every authorized service point. The custodian accepts with
// HTTP 202 and pushes the XML to the registered notification URI,
// typically within tens of seconds.
func (c *Client) RequestLatestUsage(ctx context.Context) error {
	return c.requestBulk(ctx, nil)
}

// RequestUsageRange asks for usage published between start and end. A
// zero end means now.
func (c *Client) RequestUsageRange(ctx context.Context, start, end time.Time) error {
	if end.IsZero() {
		end = time.Now()
	}

	params := url.Values{}
	params.Set("published-min", strconv.FormatInt(start.Unix(), 10))
	params.Set("published-max", strconv.FormatInt(end.Unix(), 10))
	return c.requestBulk(ctx, params)
}

// RequestUsageDate asks for a single day of usage. The date names a
// calendar day in the custodian's Pacific time zone, formatted
// 2006-01-02.
func (c *Client) RequestUsageDate(ctx context.Context, date string) error {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return fmt.Errorf("could not load custodian time zone: %w", err)
	}

	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return fmt.Errorf("invalid date %q, want 2006-01-02: %w", date, err)
	}

	start := day.Unix()
	params := url.Values{}
	params.Set("published-min", strconv.FormatInt(start, 10))
	params.Set("published-max", strconv.FormatInt(start+dayWindowSeconds, 10))
	return c.requestBulk(ctx, params)
}

// RequestHistoricalUsage asks for usage published over the trailing
// number of days. Non-positive days selects the custodian's two year
// maximum.
func (c *Client) RequestHistoricalUsage(ctx context.Context, days int) error {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	end := time.Now()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	return c.RequestUsageRange(ctx, start, end)
}

// FetchUsage retrieves the raw usage XML behind a notification resource
// URI. A 403 response triggers one token refresh and retry, as the
// custodian invalidates tokens ahead of schedule during maintenance.
func (c *Client) FetchUsage(ctx context.Context, resource interfaces.ResourceURI) ([]byte, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug("fetching usage resource", "resource", resource.String())
	body, status, err := c.get(ctx, resource.String(), token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusForbidden {
		c.log.Warn("usage fetch rejected, refreshing access token", "resource", resource.String())
		token, err = c.forceToken(ctx)
		if err != nil {
			return nil, err
		}
		body, status, err = c.get(ctx, resource.String(), token)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK {
		return nil, api.NewStatusError(status, body)
	}
	return body, nil
}

// requestBulk issues an asynchronous delivery request to the bulk
// resource. Only HTTP 202 means the custodian queued the delivery.
func (c *Client) requestBulk(ctx context.Context, params url.Values) error {
	if c.thirdParty.Empty() {
		return errors.New("a third party id is required for bulk requests")
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	reqURL := c.bulkURL
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.log.Debug("requesting bulk usage delivery", "url", reqURL)
	body, status, err := c.get(ctx, reqURL, token)
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return api.NewStatusError(status, body)
	}

	c.log.Info("bulk usage request accepted, awaiting push", "url", c.bulkURL)
	return nil
}

// bearer returns a cached access token, refreshing it when needed.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().After(c.accessTokenExp.Add(-tokenExpiryLeeway)) {
		if err := c.refreshTokenLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.accessToken, nil
}

// forceToken discards any cached token and fetches a fresh one.
func (c *Client) forceToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshTokenLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// refreshTokenLocked exchanges the client credentials for an access
// token. Callers must hold c.mu.
func (c *Client) refreshTokenLocked(ctx context.Context) error {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("could not build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.authHeader)

	c.log.Debug("requesting access token", "url", c.endpoints.TokenURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %v", interfaces.ErrTokenRejected, api.NewStatusError(resp.StatusCode, body))
	}

	// The custodian's token endpoint is not plain OAuth: the token
	// arrives under client_access_token and expires_in may be a string.
	var parsed struct {
		AccessToken string      `json:"client_access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("could not parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return fmt.Errorf("%w: response did not contain client_access_token", interfaces.ErrTokenRejected)
	}

	expiresIn, err := parsed.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		return fmt.Errorf("%w: response did not contain a usable expires_in", interfaces.ErrTokenRejected)
	}

	c.accessToken = parsed.AccessToken
	c.accessTokenExp = time.Now().Add(time.Duration(expiresIn) * time.Second)
	tokenRefreshes.Inc()
	c.log.Debug("access token refreshed", "expires_in", expiresIn)
	return nil
}

// get issues an authenticated GET and returns the body and status code.
func (c *Client) get(ctx context.Context, rawURL, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("could not build request for %s: %w", rawURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("could not request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read response from %s: %w", rawURL, err)
	}
	return body, resp.StatusCode, nil
}
