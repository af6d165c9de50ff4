// Package security selects and builds the credential a SOAP client presents.
//
// Exactly one scheme is active per connection. Scheme tokens are
// case-sensitive:
//
//	BasicAuth, Basic                    HTTP Basic authentication
//	WS, Security, WSSecurity            WS-Security UsernameToken header
//	SecurityCert, SecurityCertificate   WS-Security BinarySecurityToken header
//	ClientSSL                           TLS client certificate (PFX or key/cert/CA)
//	Bearer                              HTTP Bearer token
//
// An absent or unrecognised scheme falls back to Basic and logs a warning.
package security

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/logging"
)

// Scheme names a credential variant.
type Scheme string

// Schemes.
const (
	SchemeBasic        Scheme = "BasicAuth"
	SchemeWSSecurity   Scheme = "WSSecurity"
	SchemeSecurityCert Scheme = "SecurityCert"
	SchemeClientSSL    Scheme = "ClientSSL"
	SchemeBearer       Scheme = "Bearer"
)

// ErrInvalidCredentials wraps failures to load credential material.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is attached to a transport client. Credentials additionally
// implement one or more of RequestDecorator, HeaderProvider and TLSProvider.
type Credential interface {
	Scheme() Scheme
}

// RequestDecorator adds HTTP-level credentials to an outgoing request.
type RequestDecorator interface {
	Decorate(req *http.Request)
}

// HeaderProvider produces a SOAP header element for each outgoing envelope.
type HeaderProvider interface {
	SecurityHeader() (string, error)
}

// TLSProvider supplies the TLS configuration for the transport.
type TLSProvider interface {
	TLSConfig() *tls.Config
}

// Client is the slot a credential is attached to.
type Client interface {
	SetSecurity(Credential)
}

// ParseScheme maps a configured token to a Scheme. ok is false for absent or
// unknown tokens.
func ParseScheme(token string) (s Scheme, ok bool) {
	switch token {
	case "BasicAuth", "Basic":
		return SchemeBasic, true
	case "WS", "Security", "WSSecurity":
		return SchemeWSSecurity, true
	case "SecurityCert", "SecurityCertificate":
		return SchemeSecurityCert, true
	case "ClientSSL":
		return SchemeClientSSL, true
	case "Bearer":
		return SchemeBearer, true
	default:
		return SchemeBasic, false
	}
}

// Select builds the credential described by cfg.
func Select(cfg *config.SecurityConfig, logger *slog.Logger) (Credential, error) {
	logger = logging.OrNop(logger)

	scheme, ok := ParseScheme(cfg.Scheme)
	if !ok {
		logger.Warn("unrecognized security scheme, falling back to BasicAuth", "scheme", cfg.Scheme)
	}

	var (
		cred Credential
		err  error
	)
	switch scheme {
	case SchemeWSSecurity:
		cred = NewWSSecurity(cfg.Username, cfg.Password, cfg.PasswordType, cfg.HasTimestamp)
	case SchemeSecurityCert:
		cred, err = NewSecurityCert(cfg.PrivatePEM, cfg.PublicP12PEM)
	case SchemeClientSSL:
		cred, err = NewClientSSL(cfg)
	case SchemeBearer:
		bearer := &Bearer{Token: cfg.Token}
		bearer.warnIfExpired(logger)
		cred = bearer
	default:
		cred = &BasicAuth{Username: cfg.Username, Password: cfg.Password}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredentials, scheme, err)
	}
	return cred, nil
}

// Bind selects the credential for cfg and attaches it to client. A nil cfg
// leaves the client untouched.
func Bind(client Client, cfg *config.SecurityConfig, logger *slog.Logger) error {
	if cfg == nil {
		return nil
	}
	cred, err := Select(cfg, logger)
	if err != nil {
		return err
	}
	logging.OrNop(logger).Debug("security configured", "scheme", string(cred.Scheme()))
	client.SetSecurity(cred)
	return nil
}
