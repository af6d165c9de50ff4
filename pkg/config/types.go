package config

import (
	"encoding/json"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultConnectionTimeout = 60000
	DefaultRequestTimeout    = 30000
)

// DefaultResponseSuffixes are stripped from output element names when a
// response body does not carry the declared element.
var DefaultResponseSuffixes = []string{"Output", "Out", "Response"}

// Settings configures one connector instance.
type Settings struct {
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	// WSDL overrides the capability document location. Either a URL or a file path.
	WSDL string `json:"wsdl,omitempty" yaml:"wsdl,omitempty"`

	IgnoredNamespaces []string `json:"ignoredNamespaces,omitempty" yaml:"ignoredNamespaces,omitempty"`

	Security *SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
	Username string          `json:"username,omitempty" yaml:"username,omitempty"`
	Password string          `json:"password,omitempty" yaml:"password,omitempty"`

	SOAPHeaders []HeaderConfig               `json:"soapHeaders,omitempty" yaml:"soapHeaders,omitempty"`
	Operations  map[string]OperationOverride `json:"operations,omitempty" yaml:"operations,omitempty"`

	ConnectionTimeout int  `json:"connectionTimeout,omitempty" yaml:"connectionTimeout,omitempty"`
	RemotingEnabled   bool `json:"remotingEnabled,omitempty" yaml:"remotingEnabled,omitempty"`

	ResponseSuffixes []string `json:"responseSuffixes,omitempty" yaml:"responseSuffixes,omitempty"`
	RequestTimeout   int      `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"`
	RateLimit        float64  `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	CacheDocument    *bool    `json:"cacheDocument,omitempty" yaml:"cacheDocument,omitempty"`

	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// SecurityConfig selects one credential scheme. Scheme tokens are case-sensitive;
// see the security package for the accepted values.
type SecurityConfig struct {
	Scheme   string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// WS-Security UsernameToken
	PasswordType string `json:"passwordType,omitempty" yaml:"passwordType,omitempty"`
	HasTimestamp bool   `json:"hasTimestamp,omitempty" yaml:"hasTimestamp,omitempty"`

	// SecurityCert: PEM private key and PEM certificate, inline or as paths.
	PrivatePEM   string `json:"privatePEM,omitempty" yaml:"privatePEM,omitempty"`
	PublicP12PEM string `json:"publicP12PEM,omitempty" yaml:"publicP12PEM,omitempty"`

	// ClientSSL: a PFX bundle (base64 or path) wins over key/cert/CA.
	PFX        string `json:"pfx,omitempty" yaml:"pfx,omitempty"`
	PFXPath    string `json:"pfxPath,omitempty" yaml:"pfxPath,omitempty"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	KeyPath    string `json:"keyPath,omitempty" yaml:"keyPath,omitempty"`
	Cert       string `json:"cert,omitempty" yaml:"cert,omitempty"`
	CertPath   string `json:"certPath,omitempty" yaml:"certPath,omitempty"`
	CA         string `json:"ca,omitempty" yaml:"ca,omitempty"`
	CAPath     string `json:"caPath,omitempty" yaml:"caPath,omitempty"`

	// Bearer
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
}

// HasPFX reports whether a PFX bundle is configured.
func (s *SecurityConfig) HasPFX() bool {
	return s.PFX != "" || s.PFXPath != ""
}

// OperationOverride pins an exposed name to a (service, port, operation)
// triple. Service and Port must match exactly; an empty Operation matches the
// operation named like the override key.
type OperationOverride struct {
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	Port      string `json:"port,omitempty" yaml:"port,omitempty"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
}

// HeaderConfig is an extra envelope header: either a raw XML string or an
// object serialized under Name in Namespace.
type HeaderConfig struct {
	Raw string `json:"-" yaml:"-"`

	Element   any    `json:"element,omitempty" yaml:"element,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// IsRaw reports whether the header is a verbatim XML string.
func (h HeaderConfig) IsRaw() bool {
	return h.Raw != ""
}

type headerFields HeaderConfig

// UnmarshalJSON accepts either a string or an object.
func (h *HeaderConfig) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*h = HeaderConfig{Raw: raw}
		return nil
	}
	var f headerFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*h = HeaderConfig(f)
	return nil
}

// MarshalJSON writes raw headers back as strings.
func (h HeaderConfig) MarshalJSON() ([]byte, error) {
	if h.IsRaw() {
		return json.Marshal(h.Raw)
	}
	return json.Marshal(headerFields(h))
}

// UnmarshalYAML accepts either a scalar or a mapping.
func (h *HeaderConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*h = HeaderConfig{Raw: value.Value}
		return nil
	}
	var f headerFields
	if err := value.Decode(&f); err != nil {
		return err
	}
	*h = HeaderConfig(f)
	return nil
}

// MarshalYAML writes raw headers back as scalars.
func (h HeaderConfig) MarshalYAML() (any, error) {
	if h.IsRaw() {
		return h.Raw, nil
	}
	return headerFields(h), nil
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ApplyDefaults fills unset fields.
func (s *Settings) ApplyDefaults() {
	if s.ConnectionTimeout <= 0 {
		s.ConnectionTimeout = DefaultConnectionTimeout
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if len(s.ResponseSuffixes) == 0 {
		s.ResponseSuffixes = append([]string(nil), DefaultResponseSuffixes...)
	}
	if s.CacheDocument == nil {
		enabled := true
		s.CacheDocument = &enabled
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "text"
	}
}

// EndpointURL returns the service endpoint.
func (s *Settings) EndpointURL() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return s.URL
}

// DocumentLocation returns where the capability document is fetched from:
// the explicit override, or the endpoint with a ?wsdl query.
func (s *Settings) DocumentLocation() string {
	if s.WSDL != "" {
		return s.WSDL
	}
	endpoint := s.EndpointURL()
	if endpoint == "" {
		return ""
	}
	if strings.Contains(endpoint, "?") {
		return endpoint + "&wsdl"
	}
	return endpoint + "?wsdl"
}

// EffectiveSecurity returns the security block, or a Basic configuration built
// from the top-level credentials, or nil when neither is set.
func (s *Settings) EffectiveSecurity() *SecurityConfig {
	if s.Security != nil {
		return s.Security
	}
	if s.Username != "" {
		return &SecurityConfig{Scheme: "BasicAuth", Username: s.Username, Password: s.Password}
	}
	return nil
}

// CachingEnabled reports whether fetched capability documents are cached.
func (s *Settings) CachingEnabled() bool {
	return s.CacheDocument == nil || *s.CacheDocument
}

// ConnectionTimeoutDuration returns the readiness timeout.
func (s *Settings) ConnectionTimeoutDuration() time.Duration {
	if s.ConnectionTimeout <= 0 {
		return DefaultConnectionTimeout * time.Millisecond
	}
	return time.Duration(s.ConnectionTimeout) * time.Millisecond
}

// RequestTimeoutDuration returns the per-call HTTP timeout.
func (s *Settings) RequestTimeoutDuration() time.Duration {
	if s.RequestTimeout <= 0 {
		return DefaultRequestTimeout * time.Millisecond
	}
	return time.Duration(s.RequestTimeout) * time.Millisecond
}
