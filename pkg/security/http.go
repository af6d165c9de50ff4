package security

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BasicAuth sends HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Scheme implements Credential.
func (b *BasicAuth) Scheme() Scheme { return SchemeBasic }

// Decorate implements RequestDecorator.
func (b *BasicAuth) Decorate(req *http.Request) {
	req.SetBasicAuth(b.Username, b.Password)
}

// Bearer sends an Authorization: Bearer header.
type Bearer struct {
	Token string
}

// Scheme implements Credential.
func (b *Bearer) Scheme() Scheme { return SchemeBearer }

// Decorate implements RequestDecorator.
func (b *Bearer) Decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.Token)
}

// ExpiresAt returns the exp claim when the token is a JWT. The signature is
// not verified; the remote service does that.
func (b *Bearer) ExpiresAt() (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(b.Token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (b *Bearer) warnIfExpired(logger *slog.Logger) {
	if exp, ok := b.ExpiresAt(); ok && time.Now().After(exp) {
		logger.Warn("bearer token has expired", "expiredAt", exp.Format(time.RFC3339))
	}
}
