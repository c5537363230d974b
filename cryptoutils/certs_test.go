package cryptoutils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTLSCertificate(t *testing.T) {
	dir := t.TempDir()
	crtPath := filepath.Join(dir, "client.crt")
	keyPath := filepath.Join(dir, "client.key")
	require.NoError(t, WriteSelfSignedPair("test-third-party", crtPath, keyPath))

	cert, err := LoadTLSCertificate(crtPath, keyPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
	assert.NotNil(t, cert.PrivateKey)
}

func TestLoadTLSCertificate_MissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTLSCertificate(
		filepath.Join(dir, "missing.crt"),
		filepath.Join(dir, "missing.key"),
	)
	assert.Error(t, err)
}

func TestVerifyKeyPair(t *testing.T) {
	certPEM, keyPEM, err := SelfSignedPEM("test-third-party")
	require.NoError(t, err)

	assert.NoError(t, VerifyKeyPair(certPEM, keyPEM))
}

func TestVerifyKeyPair_MismatchedKey(t *testing.T) {
	certPEM, _, err := SelfSignedPEM("test-third-party")
	require.NoError(t, err)

	// Key from a different enrollment.
	_, otherKeyPEM, err := SelfSignedPEM("other-third-party")
	require.NoError(t, err)

	assert.Error(t, VerifyKeyPair(certPEM, otherKeyPEM))
}

func TestVerifyKeyPair_GarbageInput(t *testing.T) {
	certPEM, keyPEM, err := SelfSignedPEM("test-third-party")
	require.NoError(t, err)

	assert.Error(t, VerifyKeyPair([]byte("not pem"), keyPEM))
	assert.Error(t, VerifyKeyPair(certPEM, []byte("not pem")))
}

func TestRandomCert(t *testing.T) {
	cert, err := RandomCert()
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
}
