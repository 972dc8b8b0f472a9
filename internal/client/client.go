// Package client provides an HTTP client for the commentbox REST API. It
// implements every remote store interface the comment core consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/upload"
	"github.com/evcraddock/commentbox/internal/user"
)

// Client is an HTTP client for the commentbox API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    uint64
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how many times a failed read is retried.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackOff sets the first wait between read retries. Later waits grow
// exponentially.
func WithBackOff(initial time.Duration) Option {
	return func(c *Client) {
		c.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = 10 * initial
			return b
		}
	}
}

// New creates a new API client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retries:    2,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ comment.Source       = (*Client)(nil)
	_ reaction.Store       = (*Client)(nil)
	_ reaction.Incrementer = (*Client)(nil)
	_ reply.Source         = (*Client)(nil)
	_ upload.Uploader      = (*Client)(nil)
)

// ListPage returns one page of comments with its paging metadata.
func (c *Client) ListPage(ctx context.Context, req comment.PageRequest) (*comment.Page, error) {
	q := url.Values{}
	if cur := comment.EncodeCursor(req.After); cur != "" {
		q.Set("cursor", cur)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	path := "/api/comments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page comment.Page
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListComments returns up to req.Limit comments after req.After.
func (c *Client) ListComments(ctx context.Context, req comment.PageRequest) ([]comment.Comment, error) {
	page, err := c.ListPage(ctx, req)
	if err != nil {
		return nil, err
	}
	return page.Comments, nil
}

// GetComment returns a single comment.
func (c *Client) GetComment(ctx context.Context, id string) (*comment.Comment, error) {
	var cm comment.Comment
	if err := c.get(ctx, "/api/comments/"+url.PathEscape(id), &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// CreateComment posts a new comment as the key's user.
func (c *Client) CreateComment(ctx context.Context, cm comment.Comment) (comment.Comment, error) {
	var out comment.Comment
	if err := c.post(ctx, "/api/comments", cm, &out); err != nil {
		return comment.Comment{}, err
	}
	return out, nil
}

// GetReactions returns the counters of a comment.
func (c *Client) GetReactions(ctx context.Context, id string) (reaction.Set, error) {
	var s reaction.Set
	if err := c.get(ctx, reactionsPath(id), &s); err != nil {
		return reaction.Set{}, err
	}
	return s, nil
}

// PutReactions overwrites the counters of a comment.
func (c *Client) PutReactions(ctx context.Context, id string, s reaction.Set) error {
	return c.send(ctx, http.MethodPut, reactionsPath(id), s, nil)
}

// IncrementReaction asks the server to raise one counter atomically.
func (c *Client) IncrementReaction(ctx context.Context, id string, k reaction.Kind) (reaction.Set, error) {
	var s reaction.Set
	body := map[string]string{"kind": string(k)}
	if err := c.post(ctx, reactionsPath(id), body, &s); err != nil {
		return reaction.Set{}, err
	}
	return s, nil
}

// ListReplies returns every reply to a comment.
func (c *Client) ListReplies(ctx context.Context, commentID string) ([]reply.Reply, error) {
	var rs []reply.Reply
	if err := c.get(ctx, repliesPath(commentID), &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// CreateReply posts a reply as the key's user.
func (c *Client) CreateReply(ctx context.Context, r reply.Reply) (reply.Reply, error) {
	body := reply.Draft{Body: r.Body, Mentions: r.Mentions, FileURL: r.FileURL}
	var out reply.Reply
	if err := c.post(ctx, repliesPath(r.CommentID), body, &out); err != nil {
		return reply.Reply{}, err
	}
	return out, nil
}

// ListUsers returns the mention directory.
func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	var us []user.User
	if err := c.get(ctx, "/api/users", &us); err != nil {
		return nil, err
	}
	return us, nil
}

// Me returns the user the API key belongs to.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	var u user.User
	if err := c.get(ctx, "/api/me", &u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Upload sends f as a multipart form and returns the stored file's URL.
func (c *Client) Upload(ctx context.Context, f upload.File) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func reactionsPath(id string) string { return "/api/comments/" + url.PathEscape(id) + "/reactions" }
func repliesPath(id string) string   { return "/api/comments/" + url.PathEscape(id) + "/replies" }

// get performs a GET request, retrying transport and server failures with
// exponential backoff.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		err = c.do(req, result)
		if err == nil {
			return nil
		}
		var ru *apperr.RemoteUnavailableError
		if !errors.As(err, &ru) || ru.Timeout() {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
	return apperr.Remote("GET "+path, backoff.Retry(op, b))
}

// post performs a POST request with a JSON body and decodes the response.
// Writes are never retried.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.send(ctx, http.MethodPost, path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and maps failures onto the
// error taxonomy.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	op := req.Method + " " + req.URL.Path

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Remote(op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Remote(op, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return statusError(op, resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func statusError(op string, status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(status)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return apperr.Invalid("", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.AuthRequired(op)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, apperr.ErrNotFound)
	default:
		return &apperr.RemoteUnavailableError{Op: op, Err: fmt.Errorf("server error: %s", msg)}
	}
}
