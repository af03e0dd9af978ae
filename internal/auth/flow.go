package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/glabrego/reddterm/internal/reddit"
)

// DefaultTimeout caps how long a pending authorization request may wait
// for the redirect callback.
const DefaultTimeout = 5 * time.Minute

// ErrCanceled reports that the flow was abandoned: either the user backed
// out or the pending request expired. It is not a failure.
var ErrCanceled = errors.New("authorization canceled")

// ErrBusy reports that a pending authorization request already exists.
var ErrBusy = errors.New("authorization already in progress")

const confirmationPage = `<!DOCTYPE html>
<html><head><title>reddterm</title></head>
<body><p>Authorization received. You can close this tab and return to the terminal.</p></body></html>
`

// Exchanger is the slice of the OAuth endpoints the flow needs.
type Exchanger interface {
	AuthorizeURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (reddit.Token, error)
}

// pendingRequest is the single outstanding authorization attempt: a
// one-shot nonce, a loopback listener, and a single-slot code handoff.
type pendingRequest struct {
	state       string
	redirectURI string
	server      *http.Server
	code        chan string // buffered 1; extra deliveries are dropped
	expiry      time.Time

	canceled   chan struct{}
	cancelOnce sync.Once
}

func (p *pendingRequest) cancel() {
	p.cancelOnce.Do(func() { close(p.canceled) })
}

// Flow runs the authorization-code exchange: it binds a loopback callback
// listener, hands the user an authorization URL, waits for the redirect,
// exchanges the code, and persists the refresh token. At most one request
// is outstanding at a time.
type Flow struct {
	exchanger Exchanger
	tokens    *TokenStore
	timeout   time.Duration

	mu      sync.Mutex
	pending *pendingRequest
}

func NewFlow(exchanger Exchanger, tokens *TokenStore) *Flow {
	return &Flow{exchanger: exchanger, tokens: tokens, timeout: DefaultTimeout}
}

// Begin creates the pending request and starts the callback listener on an
// ephemeral loopback port. It returns the URL the user must visit. Begin
// fails with ErrBusy while another request is outstanding.
func (f *Flow) Begin() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending != nil {
		return "", ErrBusy
	}

	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("bind callback listener: %w", err)
	}

	p := &pendingRequest{
		state:       nonce,
		redirectURI: fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		code:        make(chan string, 1),
		expiry:      time.Now().Add(f.timeout),
		canceled:    make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		// A state mismatch is a stale or foreign redirect: ignore it and
		// keep waiting for the real one.
		if r.URL.Query().Get("state") != p.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case p.code <- code:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, confirmationPage)
		default:
			// A callback is already pending; drop the duplicate.
			http.Error(w, "already received", http.StatusConflict)
		}
	})

	p.server = &http.Server{Handler: mux}
	go func() { _ = p.server.Serve(listener) }()

	f.pending = p
	return f.exchanger.AuthorizeURL(p.state, p.redirectURI), nil
}

// Wait blocks until the callback delivers a code, the request expires, or
// ctx is canceled. Expiry and cancellation both report ErrCanceled. On a
// delivered code it exchanges and persists; an exchange or persistence
// failure leaves any previously stored refresh token untouched. The
// listener is torn down on every path out.
func (f *Flow) Wait(ctx context.Context) (reddit.Token, error) {
	f.mu.Lock()
	p := f.pending
	f.mu.Unlock()
	if p == nil {
		// Either Begin was never called or the request was already torn
		// down by Cancel; nothing to wait for.
		return reddit.Token{}, ErrCanceled
	}
	defer f.teardown(p)

	timer := time.NewTimer(time.Until(p.expiry))
	defer timer.Stop()

	var code string
	select {
	case code = <-p.code:
	case <-timer.C:
		return reddit.Token{}, ErrCanceled
	case <-p.canceled:
		return reddit.Token{}, ErrCanceled
	case <-ctx.Done():
		return reddit.Token{}, ErrCanceled
	}

	token, err := f.exchanger.ExchangeCode(ctx, code, p.redirectURI)
	if err != nil {
		return reddit.Token{}, fmt.Errorf("token exchange: %w", err)
	}
	if token.RefreshToken == "" {
		return reddit.Token{}, fmt.Errorf("token exchange returned no refresh token")
	}
	if err := f.tokens.Save(token.RefreshToken); err != nil {
		return reddit.Token{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return token, nil
}

// Cancel tears down the pending request, if any, and unblocks a concurrent
// Wait with ErrCanceled. Safe to call at any time, including during process
// shutdown: the listener socket closes synchronously.
func (f *Flow) Cancel() {
	f.mu.Lock()
	p := f.pending
	f.mu.Unlock()
	if p != nil {
		p.cancel()
		f.teardown(p)
	}
}

// RedirectURI exposes the pending callback address, mainly for display.
func (f *Flow) RedirectURI() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return ""
	}
	return f.pending.redirectURI
}

func (f *Flow) teardown(p *pendingRequest) {
	f.mu.Lock()
	if f.pending == p {
		f.pending = nil
	}
	f.mu.Unlock()

	// Let an in-flight confirmation response finish, then force the
	// socket closed. The bound keeps shutdown synchronous.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.server.Shutdown(ctx); err != nil {
		_ = p.server.Close()
	}
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
