// Package github authenticates against the listings repository as a GitHub
// App installation.
package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

// AppAuth yields installation access tokens for git operations. Token
// refresh is handled by ghinstallation; tokens expire after an hour.
type AppAuth struct {
	transport *ghinstallation.Transport
}

// NewAppAuth creates a GitHub App authenticator from the app's private key.
func NewAppAuth(appID int64, privateKey []byte, installationID int64) (*AppAuth, error) {
	transport, err := ghinstallation.New(
		http.DefaultTransport,
		appID,
		installationID,
		privateKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	return &AppAuth{transport: transport}, nil
}

// Token returns a currently valid installation access token.
func (a *AppAuth) Token(ctx context.Context) (string, error) {
	token, err := a.transport.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get installation token: %w", err)
	}
	return token, nil
}

// Transport returns the authenticated HTTP transport.
func (a *AppAuth) Transport() http.RoundTripper {
	return a.transport
}
