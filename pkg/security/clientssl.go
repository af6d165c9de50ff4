package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/getmockd/soapconnect/pkg/config"
	sctls "github.com/getmockd/soapconnect/pkg/tls"
	"github.com/getmockd/soapconnect/pkg/util"
)

// ClientSSL presents a TLS client certificate.
type ClientSSL struct {
	// FromPFX reports whether the certificate came from a PFX bundle.
	FromPFX bool
	config  *tls.Config
}

// NewClientSSL builds the TLS configuration. A PFX bundle takes precedence
// over separate key, certificate and CA material.
func NewClientSSL(cfg *config.SecurityConfig) (*ClientSSL, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}

	if cfg.HasPFX() {
		cert, err := loadPFX(cfg)
		if err != nil {
			return nil, fmt.Errorf("pfx: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
		return &ClientSSL{FromPFX: true, config: tlsCfg}, nil
	}

	keyPEM, err := sctls.ReadMaterial(first(cfg.KeyPath, cfg.Key))
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	certPEM, err := sctls.ReadMaterial(first(cfg.CertPath, cfg.Cert))
	if err != nil {
		return nil, fmt.Errorf("cert: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("key pair: %w", err)
	}
	tlsCfg.Certificates = []tls.Certificate{cert}

	if ca := first(cfg.CA, cfg.CAPath); ca != "" {
		caPEM, err := sctls.ReadMaterial(ca)
		if err != nil {
			return nil, fmt.Errorf("ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("ca: no certificates found")
		}
		tlsCfg.RootCAs = pool
	}
	return &ClientSSL{config: tlsCfg}, nil
}

// Scheme implements Credential.
func (c *ClientSSL) Scheme() Scheme { return SchemeClientSSL }

// TLSConfig implements TLSProvider.
func (c *ClientSSL) TLSConfig() *tls.Config {
	return c.config.Clone()
}

func loadPFX(cfg *config.SecurityConfig) (tls.Certificate, error) {
	var data []byte
	if cfg.PFX != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.PFX)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("invalid base64: %w", err)
		}
		data = decoded
	} else {
		path, ok := util.SafeFilePathAllowAbsolute(cfg.PFXPath)
		if !ok {
			return tls.Certificate{}, fmt.Errorf("unsafe file path: %s", cfg.PFXPath)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return tls.Certificate{}, err
		}
		data = raw
	}

	key, cert, err := pkcs12.Decode(data, cfg.Passphrase)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
