package pg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/pgtoolbox/postgres-mcp-server/metrics"
)

// postgresScope is the Azure Database for PostgreSQL resource scope used
// when requesting access tokens.
const postgresScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenRefreshMargin refreshes tokens this long before expiry so in-flight
// connects never present a token about to lapse.
const tokenRefreshMargin = 5 * time.Minute

// TokenSource yields a password-equivalent access token for token-based
// authentication. Implementations must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// EntraTokenSource acquires and caches Entra ID access tokens for Azure
// Database for PostgreSQL.
type EntraTokenSource struct {
	credential azcore.TokenCredential

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewEntraTokenSource builds a token source from the configured Azure
// credentials. A service principal is used when client ID and secret are
// both present, otherwise the default credential chain (managed identity,
// Azure CLI, environment).
func NewEntraTokenSource(cfg *Config) (*EntraTokenSource, error) {
	var (
		cred azcore.TokenCredential
		err  error
	)
	if cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing Entra ID credential: %w", err)
	}
	return &EntraTokenSource{credential: cred}, nil
}

// Token returns a valid access token, refreshing when the cached one is
// within the refresh margin of expiry.
func (s *EntraTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expiresAt) > tokenRefreshMargin {
		return s.token, nil
	}

	tok, err := s.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{postgresScope},
	})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("acquiring Entra ID token: %w", err)
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	s.token = tok.Token
	s.expiresAt = tok.ExpiresOn
	return s.token, nil
}

// StaticTokenSource returns a TokenSource that always yields the same token.
// Useful for tests and for externally managed tokens.
func StaticTokenSource(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }
