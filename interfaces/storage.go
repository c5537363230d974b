package interfaces

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ContentID is the 32-byte SHA-256 hash addressing an archived payload.
type ContentID [32]byte

// NewContentIDFromHex parses a content ID from its hex representation.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash [32]byte
	copy(hash[:], hashBytes)
	return ContentID(hash), nil
}

// ComputeID calculates the content ID of a payload.
func ComputeID(data []byte) ContentID {
	hash := sha256.Sum256(data)
	return ContentID(hash)
}

// String returns the hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte hash.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Equal compares two content IDs.
func (id ContentID) Equal(other ContentID) bool {
	return bytes.Equal(id[:], other[:])
}

// ContentType selects the archive namespace a payload is stored under.
type ContentType int

const (
	// UsageType for Green Button usage feeds.
	UsageType ContentType = iota
	// NotificationType for raw notification bodies pushed by the custodian.
	NotificationType
)

// String returns the namespace name.
func (ct ContentType) String() string {
	switch ct {
	case UsageType:
		return "usage"
	case NotificationType:
		return "notification"
	default:
		return "unknown"
	}
}

// StorageBackendLocation is the URI identifying an archive backend.
// Format: [scheme]://[auth@]host[:port][/path][?params]
type StorageBackendLocation string

// Validate checks the URI parses and uses a supported scheme.
func (loc StorageBackendLocation) Validate() error {
	u, err := url.Parse(string(loc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file", "s3", "ipfs", "vault":
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
}

// String returns the URI string.
func (loc StorageBackendLocation) String() string {
	return string(loc)
}

var (
	// ErrContentNotFound is returned when requested content is not present
	// in the archive backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when an archive backend is not
	// accessible, whether from network issues, authentication failures, or
	// service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a backend location URI is
	// malformed or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides content-addressed archival of received XML.
type StorageBackend interface {
	// Fetch retrieves data by content ID and type.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates archive backends from location URIs.
type StorageBackendFactory interface {
	// StorageBackendFor creates a backend from a URI.
	// Supports file://, s3://, ipfs://, vault://
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates an aggregated backend that stores to all
	// and fetches from the first that has the content.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)

	// WithTLSAuth configures client certificate authentication for
	// backends that dial TLS services.
	WithTLSAuth(func() (tls.Certificate, error)) StorageBackendFactory
}
