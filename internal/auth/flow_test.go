package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/glabrego/reddterm/internal/reddit"
)

type fakeExchanger struct {
	token reddit.Token
	err   error

	gotCode     string
	gotRedirect string
}

func (f *fakeExchanger) AuthorizeURL(state, redirectURI string) string {
	q := make(url.Values)
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	return "https://auth.example/authorize?" + q.Encode()
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code, redirectURI string) (reddit.Token, error) {
	f.gotCode = code
	f.gotRedirect = redirectURI
	if f.err != nil {
		return reddit.Token{}, f.err
	}
	return f.token, nil
}

func newTestFlow(t *testing.T, exchanger *fakeExchanger) (*Flow, *TokenStore) {
	t.Helper()
	tokens := NewTokenStore(filepath.Join(t.TempDir(), "refresh_token"))
	return NewFlow(exchanger, tokens), tokens
}

func beginFlow(t *testing.T, f *Flow) (state, callbackURL string) {
	t.Helper()
	authURL, err := f.Begin()
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("invalid authorize URL: %v", err)
	}
	return parsed.Query().Get("state"), parsed.Query().Get("redirect_uri")
}

func deliverCallback(t *testing.T, callbackURL, state, code string) *http.Response {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s?state=%s&code=%s", callbackURL, url.QueryEscape(state), url.QueryEscape(code)))
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestFlow_HappyPathPersistsRefreshToken(t *testing.T) {
	exchanger := &fakeExchanger{token: reddit.Token{AccessToken: "at-1", RefreshToken: "rt-1"}}
	f, tokens := newTestFlow(t, exchanger)

	state, callbackURL := beginFlow(t, f)

	done := make(chan struct{})
	var token reddit.Token
	var waitErr error
	go func() {
		defer close(done)
		token, waitErr = f.Wait(context.Background())
	}()

	resp := deliverCallback(t, callbackURL, state, "code-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected confirmation page, got %d", resp.StatusCode)
	}

	<-done
	if waitErr != nil {
		t.Fatalf("Wait returned error: %v", waitErr)
	}
	if token.AccessToken != "at-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if exchanger.gotCode != "code-1" {
		t.Fatalf("unexpected exchanged code: %s", exchanger.gotCode)
	}

	stored, err := tokens.Load()
	if err != nil || stored != "rt-1" {
		t.Fatalf("expected persisted refresh token, got %q err=%v", stored, err)
	}

	// The request is consumed; a new Begin must succeed.
	if _, err := f.Begin(); err != nil {
		t.Fatalf("Begin after completion returned error: %v", err)
	}
	f.Cancel()
}

func TestFlow_SecondBeginIsRejected(t *testing.T) {
	f, _ := newTestFlow(t, &fakeExchanger{})
	if _, err := f.Begin(); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	defer f.Cancel()

	if _, err := f.Begin(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestFlow_StateMismatchIsIgnored(t *testing.T) {
	exchanger := &fakeExchanger{token: reddit.Token{AccessToken: "at-1", RefreshToken: "rt-1"}}
	f, _ := newTestFlow(t, exchanger)

	state, callbackURL := beginFlow(t, f)

	// Wrong nonce: rejected, and the listener keeps waiting.
	resp := deliverCallback(t, callbackURL, "attacker-state", "evil-code")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for state mismatch, got %d", resp.StatusCode)
	}

	done := make(chan struct{})
	var waitErr error
	go func() {
		defer close(done)
		_, waitErr = f.Wait(context.Background())
	}()

	deliverCallback(t, callbackURL, state, "good-code")
	<-done
	if waitErr != nil {
		t.Fatalf("Wait returned error: %v", waitErr)
	}
	if exchanger.gotCode != "good-code" {
		t.Fatalf("mismatched callback leaked through: %s", exchanger.gotCode)
	}
}

func TestFlow_DuplicateCallbackIsDropped(t *testing.T) {
	exchanger := &fakeExchanger{token: reddit.Token{AccessToken: "at-1", RefreshToken: "rt-1"}}
	f, _ := newTestFlow(t, exchanger)

	state, callbackURL := beginFlow(t, f)
	defer f.Cancel()

	first := deliverCallback(t, callbackURL, state, "code-1")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected first callback accepted, got %d", first.StatusCode)
	}
	second := deliverCallback(t, callbackURL, state, "code-2")
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected duplicate callback rejected, got %d", second.StatusCode)
	}

	token, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if token.RefreshToken != "rt-1" || exchanger.gotCode != "code-1" {
		t.Fatalf("expected first code exchanged, got %s", exchanger.gotCode)
	}
}

func TestFlow_ContextCancellationReportsCanceled(t *testing.T) {
	f, tokens := newTestFlow(t, &fakeExchanger{})
	if err := tokens.Save("rt-old"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	beginFlow(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Wait(ctx)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}

	stored, loadErr := tokens.Load()
	if loadErr != nil || stored != "rt-old" {
		t.Fatalf("canceled flow must not touch stored token, got %q err=%v", stored, loadErr)
	}

	// Teardown released the slot.
	if _, err := f.Begin(); err != nil {
		t.Fatalf("Begin after cancel returned error: %v", err)
	}
	f.Cancel()
}

func TestFlow_ExpiryReportsCanceled(t *testing.T) {
	f, _ := newTestFlow(t, &fakeExchanger{})
	f.timeout = 20 * time.Millisecond

	beginFlow(t, f)
	start := time.Now()
	_, err := f.Wait(context.Background())
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled on expiry, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("expiry took too long")
	}
}

func TestFlow_ExchangeFailureKeepsStoredToken(t *testing.T) {
	exchanger := &fakeExchanger{err: errors.New("connection refused")}
	f, tokens := newTestFlow(t, exchanger)
	if err := tokens.Save("rt-old"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	state, callbackURL := beginFlow(t, f)

	done := make(chan struct{})
	var waitErr error
	go func() {
		defer close(done)
		_, waitErr = f.Wait(context.Background())
	}()

	deliverCallback(t, callbackURL, state, "code-1")
	<-done

	if waitErr == nil || errors.Is(waitErr, ErrCanceled) {
		t.Fatalf("expected exchange failure, got %v", waitErr)
	}
	stored, err := tokens.Load()
	if err != nil || stored != "rt-old" {
		t.Fatalf("failed exchange must not touch stored token, got %q err=%v", stored, err)
	}
}

func TestFlow_CancelClosesListenerSocket(t *testing.T) {
	f, _ := newTestFlow(t, &fakeExchanger{})
	_, callbackURL := beginFlow(t, f)

	f.Cancel()

	if _, err := http.Get(callbackURL); err == nil {
		t.Fatal("expected listener socket to be closed")
	}
}

func TestFlow_CancelUnblocksWait(t *testing.T) {
	f, _ := newTestFlow(t, &fakeExchanger{})
	beginFlow(t, f)

	done := make(chan struct{})
	var waitErr error
	go func() {
		defer close(done)
		_, waitErr = f.Wait(context.Background())
	}()

	f.Cancel()
	<-done

	if !errors.Is(waitErr, ErrCanceled) {
		t.Fatalf("Wait after Cancel = %v, want ErrCanceled", waitErr)
	}
}
