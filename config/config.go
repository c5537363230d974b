// Package config loads the JSON credentials file issued to a registered
// third party.
package config

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gridwell/espi-self-access/cryptoutils"
	"github.com/gridwell/espi-self-access/interfaces"
)

// requiredKeys must all be present in the auth file. third_party_id may be
// empty, a third party only learns it once registration testing completes,
// but the key itself has to be there.
var requiredKeys = []string{
	"third_party_id",
	"client_id",
	"client_secret",
	"cert_crt_path",
	"cert_key_path",
}

// AuthConfig is the parsed form of the credentials file a third party
// assembles after completing utility registration.
//
// Required keys:
//
//	third_party_id   numeric identifier assigned by the utility, empty
//	                 until registration testing completes
//	client_id        client identifier for the token endpoint
//	client_secret    client secret for the token endpoint
//	cert_crt_path    path to the PEM client certificate
//	cert_key_path    path to the PEM private key
//
// The optional url keys override the default production endpoints and
// exist for sandbox environments and tests.
type AuthConfig struct {
	ThirdPartyID string `json:"third_party_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	CertCrtPath  string `json:"cert_crt_path"`
	CertKeyPath  string `json:"cert_key_path"`

	TokenURL   string `json:"token_url,omitempty"`
	UtilityURL string `json:"utility_url,omitempty"`
	APIPath    string `json:"api_path,omitempty"`
	StatusURL  string `json:"status_url,omitempty"`
}

// Load reads the credentials file at path and validates it. Unknown keys
// are rejected so that misspelled credentials fail loudly instead of
// authenticating with an empty value.
func Load(path string) (*AuthConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth file: %w", err)
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse auth file %s: %w", path, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := present[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("invalid auth file %s: missing required keys: %s", path, strings.Join(missing, ", "))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	cfg := &AuthConfig{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse auth file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the credential fields. third_party_id may stay empty
// until registration testing assigns one, every other field must be
// non-empty.
func (c *AuthConfig) Validate() error {
	var missing []string
	for _, key := range []struct {
		name  string
		value string
	}{
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"cert_crt_path", c.CertCrtPath},
		{"cert_key_path", c.CertKeyPath},
	} {
		if key.value == "" {
			missing = append(missing, key.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}

	if _, err := interfaces.NewThirdPartyID(c.ThirdPartyID); err != nil {
		return err
	}

	return nil
}

// ThirdParty returns the validated third party identifier.
func (c *AuthConfig) ThirdParty() (interfaces.ThirdPartyID, error) {
	return interfaces.NewThirdPartyID(c.ThirdPartyID)
}

// Certificate loads the TLS client certificate pair named by the config.
func (c *AuthConfig) Certificate() (tls.Certificate, error) {
	return cryptoutils.LoadTLSCertificate(c.CertCrtPath, c.CertKeyPath)
}
