package backend

import (
	"time"

	"github.com/deskindex/deskindex/internal/auth"
)

// TokenSource supplies the bearer token sent to the backend.
type TokenSource interface {
	Token() (string, error)
}

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

// jwtTokenSource mints short-lived service tokens signed with a shared secret.
type jwtTokenSource struct {
	secret   string
	subject  string
	lifetime time.Duration
}

func (j jwtTokenSource) Token() (string, error) {
	return auth.GenerateToken(j.subject, j.secret, j.lifetime)
}

// newTokenSource prefers a static token; a JWT secret is used otherwise.
// Returns nil when neither is configured.
func newTokenSource(apiToken, jwtSecret string) TokenSource {
	switch {
	case apiToken != "":
		return staticToken(apiToken)
	case jwtSecret != "":
		return jwtTokenSource{secret: jwtSecret, subject: "deskindex-console", lifetime: 5 * time.Minute}
	default:
		return nil
	}
}
