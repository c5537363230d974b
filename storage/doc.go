// Package storage provides content-addressed archival for Green Button XML
// with pluggable backends.
//
// Payloads are identified by the SHA-256 hash of their raw bytes, so an
// archived document can always be matched byte for byte against what the
// data custodian delivered. Usage feeds and notification bodies are kept in
// separate namespaces.
//
// # Storage URI Format
//
// Archive backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/smd/archive/
//   - s3://usage-archive/pge/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/
//   - vault://vault.example.com:8200/secret/usage-archive
//
// # Multi-Backend Storage
//
// The MultiStorageBackend aggregates multiple backends for redundancy:
//
//   - Store: attempts to store in all available backends
//   - Fetch: tries each backend until content is found
//   - Available: returns true if any backend is available
//
// # Usage Example
//
//	factory := storage.NewStorageBackendFactory(logger)
//	archive, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
//		"file:///var/lib/smd/archive/",
//		"s3://usage-archive/pge/?region=us-west-2",
//	})
//	if err != nil {
//		log.Fatalf("Failed to create archive: %v", err)
//	}
//
//	id, err := archive.Store(context.Background(), feedXML, interfaces.UsageType)
package storage
