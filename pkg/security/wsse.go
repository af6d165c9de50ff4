package security

import (
	"crypto"
	"crypto/sha1" //nolint:gosec // PasswordDigest is defined over SHA-1
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	sctls "github.com/getmockd/soapconnect/pkg/tls"
)

// WS-Security namespaces and token types.
const (
	NamespaceWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NamespaceWSU  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	PasswordText   = "PasswordText"
	PasswordDigest = "PasswordDigest"

	tokenProfile  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0"
	x509Profile   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-x509-token-profile-1.0#X509v3"
	base64Binary  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"
	timestampTTL  = 10 * time.Minute
	wsuTimeLayout = "2006-01-02T15:04:05.000Z"
)

// WSSecurity emits a wsse:UsernameToken header.
type WSSecurity struct {
	Username     string
	Password     string
	PasswordType string
	HasTimestamp bool

	now   func() time.Time
	nonce func() []byte
}

// NewWSSecurity creates a UsernameToken credential. passwordType defaults to
// PasswordText.
func NewWSSecurity(username, password, passwordType string, hasTimestamp bool) *WSSecurity {
	if passwordType == "" {
		passwordType = PasswordText
	}
	return &WSSecurity{
		Username:     username,
		Password:     password,
		PasswordType: passwordType,
		HasTimestamp: hasTimestamp,
		now:          time.Now,
		nonce: func() []byte {
			id := uuid.New()
			return id[:]
		},
	}
}

// Scheme implements Credential.
func (w *WSSecurity) Scheme() Scheme { return SchemeWSSecurity }

// SecurityHeader implements HeaderProvider. Nonce and timestamps are fresh
// for every envelope.
func (w *WSSecurity) SecurityHeader() (string, error) {
	now := w.now().UTC()
	created := now.Format(wsuTimeLayout)
	nonce := w.nonce()

	var b strings.Builder
	openSecurity(&b)
	if w.HasTimestamp {
		writeTimestamp(&b, now)
	}

	b.WriteString(`<wsse:UsernameToken wsu:Id="SecurityToken-` + uuid.NewString() + `">`)
	b.WriteString(`<wsse:Username>` + escape(w.Username) + `</wsse:Username>`)
	if w.PasswordType == PasswordDigest {
		b.WriteString(`<wsse:Password Type="` + tokenProfile + `#PasswordDigest">`)
		b.WriteString(PasswordDigestValue(nonce, created, w.Password))
	} else {
		b.WriteString(`<wsse:Password Type="` + tokenProfile + `#PasswordText">`)
		b.WriteString(escape(w.Password))
	}
	b.WriteString(`</wsse:Password>`)
	b.WriteString(`<wsse:Nonce EncodingType="` + base64Binary + `">`)
	b.WriteString(base64.StdEncoding.EncodeToString(nonce))
	b.WriteString(`</wsse:Nonce>`)
	b.WriteString(`<wsu:Created>` + created + `</wsu:Created>`)
	b.WriteString(`</wsse:UsernameToken>`)
	b.WriteString(`</wsse:Security>`)
	return b.String(), nil
}

// PasswordDigestValue computes Base64(SHA-1(nonce + created + password)).
func PasswordDigestValue(nonce []byte, created, password string) string {
	h := sha1.New() //nolint:gosec
	h.Write(nonce)
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// SecurityCert emits an X.509 wsse:BinarySecurityToken header. Messages are
// not signed.
type SecurityCert struct {
	Certificate *x509.Certificate
	key         crypto.Signer
	now         func() time.Time
}

// NewSecurityCert loads a PEM private key and certificate (inline or file
// paths) and checks that they belong together.
func NewSecurityCert(privatePEM, certPEM string) (*SecurityCert, error) {
	keyData, err := sctls.ReadMaterial(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	certData, err := sctls.ReadMaterial(certPEM)
	if err != nil {
		return nil, fmt.Errorf("certificate: %w", err)
	}
	key, err := sctls.DecodeKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	cert, err := sctls.DecodeCertFromPEM(certData)
	if err != nil {
		return nil, err
	}
	if err := sctls.VerifyKeyPair(cert, key); err != nil {
		return nil, err
	}
	return &SecurityCert{Certificate: cert, key: key, now: time.Now}, nil
}

// Scheme implements Credential.
func (s *SecurityCert) Scheme() Scheme { return SchemeSecurityCert }

// SecurityHeader implements HeaderProvider.
func (s *SecurityCert) SecurityHeader() (string, error) {
	var b strings.Builder
	openSecurity(&b)
	writeTimestamp(&b, s.now().UTC())
	b.WriteString(`<wsse:BinarySecurityToken EncodingType="` + base64Binary + `" ValueType="` + x509Profile + `"`)
	b.WriteString(` wsu:Id="x509cert-` + uuid.NewString() + `">`)
	b.WriteString(base64.StdEncoding.EncodeToString(s.Certificate.Raw))
	b.WriteString(`</wsse:BinarySecurityToken>`)
	b.WriteString(`</wsse:Security>`)
	return b.String(), nil
}

func openSecurity(b *strings.Builder) {
	b.WriteString(`<wsse:Security xmlns:wsse="` + NamespaceWSSE + `" xmlns:wsu="` + NamespaceWSU + `" soap:mustUnderstand="1">`)
}

func writeTimestamp(b *strings.Builder, now time.Time) {
	b.WriteString(`<wsu:Timestamp wsu:Id="Timestamp-` + uuid.NewString() + `">`)
	b.WriteString(`<wsu:Created>` + now.Format(wsuTimeLayout) + `</wsu:Created>`)
	b.WriteString(`<wsu:Expires>` + now.Add(timestampTTL).Format(wsuTimeLayout) + `</wsu:Expires>`)
	b.WriteString(`</wsu:Timestamp>`)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escape(s string) string {
	return xmlEscaper.Replace(s)
}
