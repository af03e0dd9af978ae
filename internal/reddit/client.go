package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the reddit JSON API. Reads without a session go to the
// public endpoint; everything else goes to the OAuth endpoint with a bearer
// token obtained from the token source.
type Client struct {
	apiBase   string // public reads (www.reddit.com)
	oauthBase string // authenticated calls (oauth.reddit.com)
	userAgent string
	http      *http.Client
	token     func() string
	refresh   func(ctx context.Context) error
}

func NewClient(apiBase, oauthBase, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiBase:   strings.TrimRight(apiBase, "/"),
		oauthBase: strings.TrimRight(oauthBase, "/"),
		userAgent: userAgent,
		http:      httpClient,
		token:     func() string { return "" },
	}
}

// SetTokenSource installs the access-token provider. An empty string from
// the source means unauthenticated mode.
func (c *Client) SetTokenSource(fn func() string) {
	if fn != nil {
		c.token = fn
	}
}

// SetRefresher installs the hook invoked when an authenticated call comes
// back 401. The hook must leave a fresh access token in the token source;
// the rejected call is then retried exactly once.
func (c *Client) SetRefresher(fn func(ctx context.Context) error) {
	c.refresh = fn
}

func (c *Client) FetchListing(ctx context.Context, subreddit, after string) (Listing, error) {
	q := make(url.Values)
	q.Set("limit", "25")
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	path := fmt.Sprintf("/r/%s/hot.json?%s", url.PathEscape(subreddit), q.Encode())
	if subreddit == "front" || subreddit == "" {
		path = "/hot.json?" + q.Encode()
	}

	var body thing
	if err := c.getJSON(ctx, path, "fetch listing", &body); err != nil {
		return Listing{}, err
	}
	return parseListing(body)
}

func (c *Client) FetchComments(ctx context.Context, submissionID string) (CommentPage, error) {
	path := fmt.Sprintf("/comments/%s.json?raw_json=1", url.PathEscape(submissionID))

	var payload []thing
	if err := c.getJSON(ctx, path, "fetch comments", &payload); err != nil {
		return CommentPage{}, err
	}
	return parseCommentPage(payload)
}

// FetchMoreChildren resolves a "more" stub. The response is a flat list in
// depth-first order; each comment carries ParentFullname so the caller can
// reattach the hierarchy.
func (c *Client) FetchMoreChildren(ctx context.Context, linkFullname string, childIDs []string) ([]Comment, error) {
	if len(childIDs) == 0 {
		return nil, nil
	}
	form := make(url.Values)
	form.Set("api_type", "json")
	form.Set("link_id", linkFullname)
	form.Set("children", strings.Join(childIDs, ","))
	form.Set("raw_json", "1")

	resp, err := c.do(ctx, http.MethodGet, "/api/morechildren.json?"+form.Encode(), "fetch more children", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, "fetch more children", readErrorBody(resp.Body))
	}

	var payload struct {
		JSON struct {
			Data struct {
				Things []thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode more children response: %w", err)
	}

	out := make([]Comment, 0, len(payload.JSON.Data.Things))
	for _, th := range payload.JSON.Data.Things {
		comment, err := parseComment(th, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, comment)
	}
	return out, nil
}

func (c *Client) Vote(ctx context.Context, fullname string, dir int) error {
	if dir < -1 || dir > 1 {
		return fmt.Errorf("vote direction out of range: %d", dir)
	}
	form := make(url.Values)
	form.Set("id", fullname)
	form.Set("dir", fmt.Sprintf("%d", dir))
	return c.postForm(ctx, "/api/vote", "vote", form)
}

func (c *Client) Comment(ctx context.Context, parentFullname, text string) error {
	form := make(url.Values)
	form.Set("api_type", "json")
	form.Set("thing_id", parentFullname)
	form.Set("text", text)
	return c.postForm(ctx, "/api/comment", "post comment", form)
}

func (c *Client) Delete(ctx context.Context, fullname string) error {
	form := make(url.Values)
	form.Set("id", fullname)
	return c.postForm(ctx, "/api/del", "delete", form)
}

// Edit replaces the body of the user's own comment or self post.
func (c *Client) Edit(ctx context.Context, fullname, text string) error {
	form := make(url.Values)
	form.Set("api_type", "json")
	form.Set("thing_id", fullname)
	form.Set("text", text)
	return c.postForm(ctx, "/api/editusertext", "edit", form)
}

func (c *Client) postForm(ctx context.Context, path, op string, form url.Values) error {
	resp, err := c.do(ctx, http.MethodPost, path, op, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, op, readErrorBody(resp.Body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path, op string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, op, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, op, readErrorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// do performs one API call. When an authenticated call is rejected with 401
// it refreshes the access token through the installed hook and retries a
// single time; the request is rebuilt per attempt so the form body and the
// bearer token are fresh.
func (c *Client) do(ctx context.Context, method, path, op string, form url.Values) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, op, form)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || c.refresh == nil || c.token() == "" {
		return resp, nil
	}

	resp.Body.Close()
	if err := c.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%s: refresh access token: %w", op, ErrPermission)
	}
	return c.send(ctx, method, path, op, form)
}

func (c *Client) send(ctx context.Context, method, path, op string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	base := c.apiBase
	token := c.token()
	if token != "" {
		base = c.oauthBase
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}
