package gateway

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

// ErrUnauthorizedConnection rejects a socket whose application credentials do
// not match the configured key/secret pair.
var ErrUnauthorizedConnection = errors.New("UNAUTHORIZED_CONNECTION")

// Connection-time credential headers sent by the mobile applications.
const (
	HeaderApplication = "X-Mobile-App"
	HeaderAccessKey   = "X-Mobile-Key"
	HeaderSecret      = "X-Mobile-Secret"
)

// Credentials are the out-of-band fields carried on the connection handshake.
type Credentials struct {
	Application string
	Key         string
	Secret      string
}

// CredentialsFromHeader extracts the handshake credentials.
func CredentialsFromHeader(h http.Header) Credentials {
	return Credentials{
		Application: h.Get(HeaderApplication),
		Key:         h.Get(HeaderAccessKey),
		Secret:      h.Get(HeaderSecret),
	}
}

// Authenticate gates a connection before any event is accepted. The declared
// application name is informational; only the key/secret pair is checked. On
// mismatch no session is created and the transport handshake must be rejected
// with a 401.
func (g *Gateway) Authenticate(creds Credentials) error {
	keyOK := subtle.ConstantTimeCompare([]byte(creds.Key), []byte(g.authKey)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(creds.Secret), []byte(g.authSecret)) == 1

	if !keyOK || !secretOK {
		return ErrUnauthorizedConnection
	}
	return nil
}
