package oauth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CRMConfig holds the service-principal credentials used to call the CRM.
type CRMConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

func (c CRMConfig) credentials() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// TokenSource returns a cached, auto-refreshing token source for the CRM.
func TokenSource(ctx context.Context, cfg CRMConfig) oauth2.TokenSource {
	return cfg.credentials().TokenSource(ctx)
}

// NewHTTPClient returns an HTTP client that attaches a bearer token to every
// request. A zero timeout leaves the client without a deadline.
func NewHTTPClient(ctx context.Context, cfg CRMConfig, timeout time.Duration) *http.Client {
	client := oauth2.NewClient(ctx, TokenSource(ctx, cfg))
	client.Timeout = timeout
	return client
}
