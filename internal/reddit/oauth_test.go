package reddit

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthorizeURL_EmbedsStateAndRedirect(t *testing.T) {
	a := NewAuthorizer("https://www.reddit.com/api/v1", "client123", "reddterm-test", nil)
	raw := a.AuthorizeURL("nonce-xyz", "http://127.0.0.1:65010/callback")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid authorize URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("state") != "nonce-xyz" {
		t.Fatalf("unexpected state: %s", q.Get("state"))
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:65010/callback" {
		t.Fatalf("unexpected redirect_uri: %s", q.Get("redirect_uri"))
	}
	if q.Get("client_id") != "client123" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected query: %s", parsed.RawQuery)
	}
	if q.Get("duration") != "permanent" {
		t.Fatalf("expected permanent duration, got %s", q.Get("duration"))
	}
}

func TestExchangeCode_SendsBasicAuthAndParsesToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access_token" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client123:"))
		if got := r.Header.Get("Authorization"); got != expectedAuth {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != "code-abc" {
			t.Fatalf("unexpected form: %s", r.PostForm.Encode())
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer ts.Close()

	a := NewAuthorizer(ts.URL, "client123", "reddterm-test", ts.Client())
	token, err := a.ExchangeCode(context.Background(), "code-abc", "http://127.0.0.1:65010/callback")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if token.AccessToken != "at-1" || token.RefreshToken != "rt-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if time.Until(token.ExpiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry: %v", token.ExpiresAt)
	}
}

func TestExchangeCode_ErrorField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	a := NewAuthorizer(ts.URL, "client123", "reddterm-test", ts.Client())
	_, err := a.ExchangeCode(context.Background(), "stale", "http://127.0.0.1:65010/callback")
	if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("expected invalid_grant error, got %v", err)
	}
}

func TestRefreshAccessToken_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "rt-1" {
			t.Fatalf("unexpected form: %s", r.PostForm.Encode())
		}
		_, _ = w.Write([]byte(`{"access_token":"at-2","expires_in":3600}`))
	}))
	defer ts.Close()

	a := NewAuthorizer(ts.URL, "client123", "reddterm-test", ts.Client())
	token, err := a.RefreshAccessToken(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("RefreshAccessToken returned error: %v", err)
	}
	if token.AccessToken != "at-2" {
		t.Fatalf("unexpected access token: %s", token.AccessToken)
	}
	if token.RefreshToken != "rt-1" {
		t.Fatalf("expected original refresh token carried over, got %s", token.RefreshToken)
	}
}

func TestRefreshAccessToken_PermissionErrorOnRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	a := NewAuthorizer(ts.URL, "client123", "reddterm-test", ts.Client())
	_, err := a.RefreshAccessToken(context.Background(), "revoked")
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestRevokeToken_AcceptsNoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/revoke_token" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("token_type_hint") != "refresh_token" {
			t.Fatalf("unexpected form: %s", r.PostForm.Encode())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a := NewAuthorizer(ts.URL, "client123", "reddterm-test", ts.Client())
	if err := a.RevokeToken(context.Background(), "rt-1"); err != nil {
		t.Fatalf("RevokeToken returned error: %v", err)
	}
}
