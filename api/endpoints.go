package api

import (
	"fmt"

	"github.com/gridwell/espi-self-access/interfaces"
)

// Production endpoints for the PG&E Share My Data custodian.
const (
	DefaultTokenURL     = "https://api.pge.com/datacustodian/oauth/v2/token"
	DefaultTestTokenURL = "https://api.pge.com/datacustodian/test/oauth/v2/token"
	DefaultUtilityURL   = "https://api.pge.com"
	DefaultAPIPath      = "/GreenButtonConnect/espi"
	DefaultStatusURL    = "https://api.pge.com/GreenButtonConnect/espi/1_1/resource/ReadServiceStatus"
)

// Endpoints collects every custodian URL the clients reach. The zero
// value is unusable; start from DefaultEndpoints and override fields for
// sandbox environments and tests.
type Endpoints struct {
	// TokenURL is the client credentials token endpoint.
	TokenURL string

	// TestTokenURL is the token endpoint used during registration
	// connectivity testing.
	TestTokenURL string

	// UtilityURL is the scheme and host of the custodian API.
	UtilityURL string

	// APIPath is the path prefix of the Green Button resource tree.
	APIPath string

	// StatusURL is the ReadServiceStatus resource.
	StatusURL string
}

// DefaultEndpoints returns the PG&E production endpoint set.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		TokenURL:     DefaultTokenURL,
		TestTokenURL: DefaultTestTokenURL,
		UtilityURL:   DefaultUtilityURL,
		APIPath:      DefaultAPIPath,
		StatusURL:    DefaultStatusURL,
	}
}

// BulkResourceURL returns the Batch Bulk resource for a third party.
// Requests to it are answered asynchronously with a push to the
// registered notification URI.
func (e Endpoints) BulkResourceURL(id interfaces.ThirdPartyID) string {
	return e.BulkPrefix() + id.String()
}

// BulkPrefix returns the URL prefix shared by all Batch Bulk resources.
// The trailing path segment of a full bulk resource is the third party's
// bulk identifier.
func (e Endpoints) BulkPrefix() string {
	return fmt.Sprintf("%s%s/1_1/resource/Batch/Bulk/", e.UtilityURL, e.APIPath)
}

// SampleDataURL returns the sample data resource served during
// registration connectivity testing.
func (e Endpoints) SampleDataURL() string {
	return fmt.Sprintf("%s%s/1_1/resource/DownloadSampleData", e.UtilityURL, e.APIPath)
}

// AuthorizationURL returns the Authorization resource, which lists the
// data resources the third party is entitled to.
func (e Endpoints) AuthorizationURL() string {
	return fmt.Sprintf("%s%s/1_1/resource/Authorization", e.UtilityURL, e.APIPath)
}
