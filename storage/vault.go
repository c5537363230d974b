package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gridwell/espi-self-access/interfaces"
	"github.com/hashicorp/vault/api"
)

// VaultBackend implements a storage backend using HashiCorp Vault's KV
// version 2 secrets engine. It authenticates with a TLS client certificate,
// typically the same certificate registered with the data custodian.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault storage backend with TLS client
// certificate authentication.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: Vault KV mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "usage-archive")
//   - clientCert: TLS certificate presented to the Vault server
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath string, clientCert tls.Certificate, log *slog.Logger) (*VaultBackend, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{clientCert},
		},
	}

	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	host := strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", host, mountPath, dataPath),
	}, nil
}

// Fetch retrieves data from Vault by its content identifier and type.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	contentIDStr := id.String()

	path, err := b.secretPath(id, contentType)
	if err != nil {
		return nil, err
	}

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("Content not found in Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, interfaces.ErrContentNotFound
	}

	// KV v2 wraps the stored fields in a nested data map
	data, ok := secret.Data["data"]
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data.(map[string]interface{})["content"]
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	contentStr, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("invalid content format in Vault data")
	}

	b.log.Debug("Fetched content from Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return []byte(contentStr), nil
}

// Store saves data to Vault and returns its content identifier.
// The content ID is the SHA-256 hash of the data.
func (b *VaultBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	start := time.Now()

	id := interfaces.ComputeID(data)
	contentIDStr := id.String()

	path, err := b.secretPath(id, contentType)
	if err != nil {
		return id, err
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	}

	_, err = b.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return id, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored content in Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return id, nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// secretPath builds the KV v2 path for a content ID and type.
func (b *VaultBackend) secretPath(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	var typeStr string
	switch contentType {
	case interfaces.UsageType:
		typeStr = "usage"
	case interfaces.NotificationType:
		typeStr = "notification"
	default:
		return "", fmt.Errorf("unsupported content type: %v", contentType)
	}

	return fmt.Sprintf("%s/data/%s/%s/%s", b.mountPath, b.dataPath, typeStr, id.String()), nil
}
