// Package cryptoutils handles the TLS certificate material used for
// mutual authentication with utility Green Button endpoints.
//
// Utilities issue a certificate and key pair when a third party
// registers. The same pair authenticates outgoing API requests and
// terminates TLS on the notification listener. This package loads and
// sanity checks that pair, and generates throwaway self-signed pairs
// for tests and local development.
package cryptoutils
