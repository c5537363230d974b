package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"
)

// LoadTLSCertificate reads a PEM certificate and key pair from disk and
// returns it ready for use in a tls.Config. Utilities hand out exactly
// this pair during third party registration, and the same pair serves
// both the outgoing API client and the notification listener.
func LoadTLSCertificate(crtPath, keyPath string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(crtPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load certificate pair %s, %s: %w", crtPath, keyPath, err)
	}
	return cert, nil
}

// VerifyKeyPair validates that a certificate and a private key belong
// together. It performs the following checks:
//   - Both PEM blocks can be parsed correctly
//   - The public key in the certificate corresponds to the private key
//
// This catches the common registration mistake of pointing the
// configuration at a certificate from one enrollment and a key from
// another.
func VerifyKeyPair(certPEM, keyPEM []byte) error {
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return errors.New("failed to decode private key PEM block")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		// Try PKCS#1 format if PKCS#8 fails
		privateKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return errors.New("failed to decode certificate PEM block")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	signer, ok := privateKey.(interface{ Public() crypto.PublicKey })
	if !ok {
		return errors.New("unsupported private key type")
	}
	publicKey := signer.Public()

	switch certKey := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		privKey, ok := publicKey.(*ecdsa.PublicKey)
		if !ok || !certKey.Equal(privKey) {
			return errors.New("private key doesn't match certificate")
		}
		return nil
	case *rsa.PublicKey:
		privKey, ok := publicKey.(*rsa.PublicKey)
		if !ok || !certKey.Equal(privKey) {
			return errors.New("private key doesn't match certificate")
		}
		return nil
	}

	return errors.New("unsupported key type")
}

// SelfSignedPEM generates an ECDSA key pair and a self-signed certificate
// for cn, both PEM encoded. Intended for tests and local development
// where chain of trust does not matter.
func SelfSignedPEM(cn string) (certPEM, keyPEM []byte, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"localhost"},
	}

	certASN1, err := x509.CreateCertificate(rand.Reader, template, template,
		privateKey.Public(), privateKey)
	if err != nil {
		return nil, nil, err
	}

	privkeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certASN1})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privkeyBytes})
	return certPEM, keyPEM, nil
}

// RandomCert generates a random self-signed certificate to use
// for https servers where chain of trust does not matter, for
// example when the server is running on localhost.
func RandomCert() (tls.Certificate, error) {
	certPEM, keyPEM, err := SelfSignedPEM("")
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}

// WriteSelfSignedPair writes a freshly generated certificate and key to
// crtPath and keyPath. Tests use this to stand in for the files a
// utility issues at registration time.
func WriteSelfSignedPair(cn, crtPath, keyPath string) error {
	certPEM, keyPEM, err := SelfSignedPEM(cn)
	if err != nil {
		return err
	}
	if err := os.WriteFile(crtPath, certPEM, 0644); err != nil {
		return err
	}
	return os.WriteFile(keyPath, keyPEM, 0600)
}
