package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct {
	token     string
	expiresOn time.Time
	err       error
	calls     int
}

func (c *fakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.calls++
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: c.expiresOn}, nil
}

func TestStaticTokenSource(t *testing.T) {
	source := StaticTokenSource("tok-123")

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q", token)
	}
}

func TestEntraTokenSourceCachesUntilNearExpiry(t *testing.T) {
	cred := &fakeCredential{token: "tok-1", expiresOn: time.Now().Add(time.Hour)}
	source := &EntraTokenSource{credential: cred}

	for i := 0; i < 3; i++ {
		token, err := source.Token(context.Background())
		if err != nil {
			t.Fatalf("Token error: %v", err)
		}
		if token != "tok-1" {
			t.Errorf("token = %q", token)
		}
	}
	if cred.calls != 1 {
		t.Errorf("credential calls = %d, want 1 (cached)", cred.calls)
	}
}

func TestEntraTokenSourceRefreshesNearExpiry(t *testing.T) {
	// Expires inside the refresh margin, so every call re-acquires.
	cred := &fakeCredential{token: "tok-1", expiresOn: time.Now().Add(time.Minute)}
	source := &EntraTokenSource{credential: cred}

	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if cred.calls != 2 {
		t.Errorf("credential calls = %d, want 2", cred.calls)
	}
}

func TestEntraTokenSourceError(t *testing.T) {
	cred := &fakeCredential{err: errors.New("no managed identity")}
	source := &EntraTokenSource{credential: cred}

	if _, err := source.Token(context.Background()); err == nil {
		t.Fatal("Token expected error")
	}
}
