// Package interfaces defines shared types and contracts for the Share My
// Data collector, separating interface definitions from implementations.
//
// # Domain Types
//
// ThirdPartyID: The registered third party identifier, embedded in the bulk
// resource URL. May be empty until registration testing completes.
//
// ResourceURI: A usage resource location parsed from a custodian
// notification, fetched with bearer authentication.
//
// # Archive Interfaces
//
// StorageBackend: Content-addressed archival of received XML payloads
// across backend types (file, S3, IPFS, Vault).
//
// StorageBackendFactory: Creates archive backends from URI strings and
// aggregates them into redundant multi-backends.
//
// # Client Interfaces
//
// UsageRetriever: Fetches usage resources referenced by notifications.
// Implemented by the Self Access API client and consumed by the
// notification handler, so the listener can be tested without a live
// custodian connection.
package interfaces
