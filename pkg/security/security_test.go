package security

import (
	"bytes"
	"crypto/sha1" //nolint:gosec
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/logging"
	sctls "github.com/getmockd/soapconnect/pkg/tls"
)

type recordingClient struct {
	calls []Credential
}

func (c *recordingClient) SetSecurity(cred Credential) { c.calls = append(c.calls, cred) }

func TestParseScheme(t *testing.T) {
	tests := []struct {
		token string
		want  Scheme
		ok    bool
	}{
		{"BasicAuth", SchemeBasic, true},
		{"Basic", SchemeBasic, true},
		{"WS", SchemeWSSecurity, true},
		{"Security", SchemeWSSecurity, true},
		{"WSSecurity", SchemeWSSecurity, true},
		{"SecurityCert", SchemeSecurityCert, true},
		{"SecurityCertificate", SchemeSecurityCert, true},
		{"ClientSSL", SchemeClientSSL, true},
		{"Bearer", SchemeBearer, true},
		{"bearer", SchemeBasic, false},
		{"", SchemeBasic, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseScheme(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestBind_BearerAttachesOnlyBearer(t *testing.T) {
	client := &recordingClient{}
	require.NoError(t, Bind(client, &config.SecurityConfig{Scheme: "Bearer", Token: "T"}, nil))

	require.Len(t, client.calls, 1)
	bearer, ok := client.calls[0].(*Bearer)
	require.True(t, ok)
	assert.Equal(t, SchemeBearer, bearer.Scheme())

	_, isHeader := client.calls[0].(HeaderProvider)
	_, isTLS := client.calls[0].(TLSProvider)
	assert.False(t, isHeader)
	assert.False(t, isTLS)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	bearer.Decorate(req)
	assert.Equal(t, "Bearer T", req.Header.Get("Authorization"))
	_, _, hasBasic := req.BasicAuth()
	assert.False(t, hasBasic)
}

func TestBind_UnknownSchemeFallsBackToBasic(t *testing.T) {
	for _, scheme := range []string{"Kerberos", "basicauth", ""} {
		t.Run(scheme, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.FromStrings("debug", "text", &buf)
			client := &recordingClient{}

			err := Bind(client, &config.SecurityConfig{Scheme: scheme, Username: "u", Password: "p"}, logger)
			require.NoError(t, err)

			require.Len(t, client.calls, 1)
			basic, ok := client.calls[0].(*BasicAuth)
			require.True(t, ok)

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			basic.Decorate(req)
			user, pass, ok := req.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "u", user)
			assert.Equal(t, "p", pass)

			assert.Contains(t, buf.String(), "falling back to BasicAuth")
		})
	}
}

func TestBind_NilConfig(t *testing.T) {
	client := &recordingClient{}
	require.NoError(t, Bind(client, nil, nil))
	assert.Empty(t, client.calls)
}

func TestWSSecurity_PasswordDigest(t *testing.T) {
	ws := NewWSSecurity("alice", "secret", PasswordDigest, true)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	nonce := []byte("0123456789abcdef")
	ws.now = func() time.Time { return fixed }
	ws.nonce = func() []byte { return nonce }

	header, err := ws.SecurityHeader()
	require.NoError(t, err)

	h := sha1.New() //nolint:gosec
	h.Write(nonce)
	h.Write([]byte("2024-03-01T12:00:00.000Z"))
	h.Write([]byte("secret"))
	want := base64.StdEncoding.EncodeToString(h.Sum(nil))
	assert.Equal(t, want, PasswordDigestValue(nonce, "2024-03-01T12:00:00.000Z", "secret"))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<soap:Header xmlns:soap="urn:s">`+header+`</soap:Header>`))

	token := doc.FindElement("//UsernameToken")
	require.NotNil(t, token)
	assert.Equal(t, "alice", token.FindElement("Username").Text())
	pw := token.FindElement("Password")
	assert.Equal(t, want, pw.Text())
	assert.Contains(t, pw.SelectAttrValue("Type", ""), "#PasswordDigest")
	assert.Equal(t, base64.StdEncoding.EncodeToString(nonce), token.FindElement("Nonce").Text())
	assert.Equal(t, "2024-03-01T12:00:00.000Z", token.FindElement("Created").Text())

	ts := doc.FindElement("//Timestamp")
	require.NotNil(t, ts)
	assert.Equal(t, "2024-03-01T12:10:00.000Z", ts.FindElement("Expires").Text())
}

func TestWSSecurity_PasswordTextDefault(t *testing.T) {
	ws := NewWSSecurity("bob", "a<b", "", false)
	header, err := ws.SecurityHeader()
	require.NoError(t, err)
	assert.Contains(t, header, "#PasswordText\">a&lt;b</wsse:Password>")
	assert.NotContains(t, header, "Timestamp")

	second, err := ws.SecurityHeader()
	require.NoError(t, err)
	assert.NotEqual(t, header, second, "every envelope gets a fresh nonce")
}

func TestSecurityCert(t *testing.T) {
	gen, err := sctls.GenerateSelfSignedCert(&sctls.CertificateConfig{CommonName: "client", Client: true, ValidFor: time.Hour})
	require.NoError(t, err)

	cred, err := Select(&config.SecurityConfig{
		Scheme:       "SecurityCertificate",
		PrivatePEM:   string(gen.KeyPEM),
		PublicP12PEM: string(gen.CertPEM),
	}, nil)
	require.NoError(t, err)

	provider, ok := cred.(HeaderProvider)
	require.True(t, ok)
	header, err := provider.SecurityHeader()
	require.NoError(t, err)
	assert.Contains(t, header, base64.StdEncoding.EncodeToString(gen.Certificate.Raw))
	assert.Contains(t, header, "wsu:Timestamp")

	other, err := sctls.GenerateSelfSignedCert(nil)
	require.NoError(t, err)
	_, err = Select(&config.SecurityConfig{
		Scheme:       "SecurityCert",
		PrivatePEM:   string(other.KeyPEM),
		PublicP12PEM: string(gen.CertPEM),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClientSSL_KeyCertFiles(t *testing.T) {
	gen, err := sctls.GenerateSelfSignedCert(&sctls.CertificateConfig{CommonName: "client", Client: true, ValidFor: time.Hour})
	require.NoError(t, err)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "client.key")
	certPath := filepath.Join(dir, "client.crt")
	require.NoError(t, os.WriteFile(keyPath, gen.KeyPEM, 0o600))
	require.NoError(t, os.WriteFile(certPath, gen.CertPEM, 0o600))

	cred, err := Select(&config.SecurityConfig{
		Scheme:   "ClientSSL",
		KeyPath:  keyPath,
		CertPath: certPath,
		CA:       string(gen.CertPEM),
	}, nil)
	require.NoError(t, err)

	ssl := cred.(*ClientSSL)
	assert.False(t, ssl.FromPFX)
	tlsCfg := ssl.TLSConfig()
	require.Len(t, tlsCfg.Certificates, 1)
	assert.NotNil(t, tlsCfg.RootCAs)
}

func TestClientSSL_PFXTakesPrecedence(t *testing.T) {
	gen, err := sctls.GenerateSelfSignedCert(nil)
	require.NoError(t, err)

	_, err = Select(&config.SecurityConfig{
		Scheme: "ClientSSL",
		PFX:    base64.StdEncoding.EncodeToString([]byte("not a pfx")),
		Key:    string(gen.KeyPEM),
		Cert:   string(gen.CertPEM),
	}, nil)
	require.Error(t, err, "valid key/cert must not be used when a PFX is configured")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "pfx")
}

func TestBearer_ExpiredTokenWarns(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "svc",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var buf bytes.Buffer
	cred, err := Select(&config.SecurityConfig{Scheme: "Bearer", Token: token}, logging.FromStrings("warn", "text", &buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "bearer token has expired")

	_, ok := cred.(*Bearer).ExpiresAt()
	assert.True(t, ok)

	_, ok = (&Bearer{Token: "opaque"}).ExpiresAt()
	assert.False(t, ok)
}
