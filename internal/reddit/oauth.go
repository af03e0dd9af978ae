package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const oauthScope = "identity read vote submit edit history mysubreddits"

// Authorizer handles the authorization-code endpoints, which live on the
// public host and use HTTP basic auth with the application client ID and an
// empty secret (installed-app flow).
type Authorizer struct {
	authBase  string
	clientID  string
	userAgent string
	http      *http.Client
}

func NewAuthorizer(authBase, clientID, userAgent string, httpClient *http.Client) *Authorizer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Authorizer{
		authBase:  strings.TrimRight(authBase, "/"),
		clientID:  clientID,
		userAgent: userAgent,
		http:      httpClient,
	}
}

// AuthorizeURL builds the URL the user visits to approve access. The state
// nonce comes back on the redirect and must match the pending request.
func (a *Authorizer) AuthorizeURL(state, redirectURI string) string {
	q := make(url.Values)
	q.Set("client_id", a.clientID)
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	q.Set("duration", "permanent")
	q.Set("scope", oauthScope)
	return a.authBase + "/authorize?" + q.Encode()
}

func (a *Authorizer) ExchangeCode(ctx context.Context, code, redirectURI string) (Token, error) {
	form := make(url.Values)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return a.tokenRequest(ctx, "exchange code", form)
}

func (a *Authorizer) RefreshAccessToken(ctx context.Context, refreshToken string) (Token, error) {
	form := make(url.Values)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := a.tokenRequest(ctx, "refresh access token", form)
	if err != nil {
		return Token{}, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (a *Authorizer) RevokeToken(ctx context.Context, refreshToken string) error {
	form := make(url.Values)
	form.Set("token", refreshToken)
	form.Set("token_type_hint", "refresh_token")

	req, err := a.newRequest(ctx, "/revoke_token", form)
	if err != nil {
		return err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token request failed: %w", err)
	}
	defer resp.Body.Close()

	// The revoke endpoint returns 204 regardless of whether the token was
	// known; only transport-level and auth failures matter.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(resp.StatusCode, "revoke token", readErrorBody(resp.Body))
	}
	return nil
}

func (a *Authorizer) tokenRequest(ctx context.Context, op string, form url.Values) (Token, error) {
	req, err := a.newRequest(ctx, "/access_token", form)
	if err != nil {
		return Token{}, err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, classifyStatus(resp.StatusCode, op, readErrorBody(resp.Body))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, fmt.Errorf("decode %s response: %w", op, err)
	}
	if payload.Error != "" {
		return Token{}, fmt.Errorf("%s rejected: %s", op, payload.Error)
	}
	if payload.AccessToken == "" {
		return Token{}, fmt.Errorf("%s returned no access token", op)
	}

	return Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

func (a *Authorizer) newRequest(ctx context.Context, path string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(a.clientID, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)
	return req, nil
}
