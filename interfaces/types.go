// Package interfaces defines the shared types and contracts between the
// Share My Data client, the notification listener, and the archive layer,
// without implementation details.
package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ThirdPartyID is the identifier the data custodian assigns to a registered
// third party. It doubles as the Bulk ID in the bulk resource URL. Self
// Access users may not know it until registration testing completes, so the
// empty value is legal.
type ThirdPartyID string

// NewThirdPartyID validates and returns a third party identifier.
func NewThirdPartyID(id string) (ThirdPartyID, error) {
	tpid := ThirdPartyID(id)
	if err := tpid.Validate(); err != nil {
		return "", err
	}
	return tpid, nil
}

// Validate checks that a non-empty identifier is numeric, as the custodian
// embeds it in resource paths.
func (id ThirdPartyID) Validate() error {
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid third party id %q: must be numeric", string(id))
		}
	}
	return nil
}

// Empty reports whether the identifier is unset.
func (id ThirdPartyID) Empty() bool {
	return id == ""
}

// String returns the identifier as a string.
func (id ThirdPartyID) String() string {
	return string(id)
}

// ResourceURI is a usage resource location parsed from a data custodian
// notification. Fetching one requires bearer authentication.
type ResourceURI string

// NewResourceURI validates and returns a resource URI.
func NewResourceURI(uri string) (ResourceURI, error) {
	res := ResourceURI(uri)
	if err := res.Validate(); err != nil {
		return "", err
	}
	return res, nil
}

// Validate checks the URI parses and carries an HTTP scheme and host.
func (r ResourceURI) Validate() error {
	u, err := url.Parse(string(r))
	if err != nil {
		return fmt.Errorf("invalid resource URI %q: %w", string(r), err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid resource URI %q: unsupported scheme %q", string(r), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid resource URI %q: missing host", string(r))
	}
	return nil
}

// String returns the URI as a string.
func (r ResourceURI) String() string {
	return string(r)
}

// ErrTokenRejected is returned when the data custodian refuses the client
// credentials during a token exchange.
var ErrTokenRejected = errors.New("access token request rejected")

// UsageRetriever fetches usage resources referenced by notifications.
// Implemented by the Self Access API client.
type UsageRetriever interface {
	// FetchUsage retrieves the raw usage XML behind a notification
	// resource URI using bearer authentication.
	FetchUsage(ctx context.Context, resource ResourceURI) ([]byte, error)
}
