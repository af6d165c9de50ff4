package tls

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/getmockd/soapconnect/pkg/util"
)

// ErrEncryptedKey is returned for passphrase-protected PEM keys.
var ErrEncryptedKey = errors.New("encrypted PEM private keys are not supported")

// ReadMaterial returns inline PEM text as-is, or reads the named file when
// value does not look like PEM.
func ReadMaterial(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("no key material configured")
	}
	if strings.Contains(value, "-----BEGIN ") {
		return []byte(value), nil
	}
	path, ok := util.SafeFilePathAllowAbsolute(value)
	if !ok {
		return nil, fmt.Errorf("unsafe file path: %s", value)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// DecodeCertFromPEM decodes the first CERTIFICATE block.
func DecodeCertFromPEM(certPEM []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, certPEM = pem.Decode(certPEM)
		if block == nil {
			return nil, errors.New("no CERTIFICATE block found")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert, nil
	}
}

// DecodeKeyFromPEM decodes the first private key block in PKCS#1, PKCS#8 or
// SEC 1 form.
func DecodeKeyFromPEM(keyPEM []byte) (crypto.Signer, error) {
	for {
		var block *pem.Block
		block, keyPEM = pem.Decode(keyPEM)
		if block == nil {
			return nil, errors.New("no private key block found")
		}

		var (
			key any
			err error
		)
		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			key, err = x509.ParseECPrivateKey(block.Bytes)
		case "PRIVATE KEY":
			key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		case "ENCRYPTED PRIVATE KEY":
			return nil, ErrEncryptedKey
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return signer, nil
	}
}

// VerifyKeyPair verifies that a certificate and private key form a valid pair.
func VerifyKeyPair(cert *x509.Certificate, key crypto.Signer) error {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return errors.New("private key does not match certificate public key")
	}
	return nil
}
