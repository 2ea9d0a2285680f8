package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/guard"
	"omnia/internal/services"
)

// API is what the console needs from the server.
type API interface {
	SignIn(ctx context.Context, username, password string) (services.AuthResult, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (guard.Session, error)
	ListIntents(ctx context.Context, q datatable.Query) (domain.Page[models.Intent], error)
	CreateIntent(ctx context.Context, in models.IntentInput) (models.Intent, error)
}

// TokenStore keeps the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Client talks to the omnia HTTP API.
type Client struct {
	http   *resty.Client
	tokens TokenStore

	mu    sync.Mutex
	token string
}

// apiError is the error payload of the server.
type apiError struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// NewClient returns a client for baseURL. tokens may be nil.
func NewClient(baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetRetryCount(2).
			SetRetryWaitTime(100 * time.Millisecond).
			SetRetryMaxWaitTime(time.Second),
		tokens: tokens,
	}
	// Only reads are retried.
	c.http.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	if tokens != nil {
		if tok, err := tokens.Load(); err == nil {
			c.token = tok
		}
	}
	return c
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(tok string) error {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	if c.tokens == nil {
		return nil
	}
	if tok == "" {
		return c.tokens.Clear()
	}
	return c.tokens.Save(tok)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&apiError{})
	if tok := c.Token(); tok != "" {
		r.SetAuthToken(tok)
	}
	return r
}

func (c *Client) SignIn(ctx context.Context, username, password string) (services.AuthResult, error) {
	var out services.AuthResult
	resp, err := c.request(ctx).
		SetBody(models.SignInInput{Username: username, Password: password}).
		SetResult(&out).
		Post("/api/auth/sign-in")
	if err := check(resp, err); err != nil {
		return services.AuthResult{}, err
	}
	if err := c.setToken(out.Token); err != nil {
		return out, fmt.Errorf("store token: %w", err)
	}
	return out, nil
}

// SignOut ends the server session and forgets the token even when the
// server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	var reqErr error
	if c.Token() != "" {
		resp, err := c.request(ctx).Post("/api/auth/sign-out")
		reqErr = check(resp, err)
	}
	if err := c.setToken(""); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return reqErr
}

func (c *Client) Session(ctx context.Context) (guard.Session, error) {
	if c.Token() == "" {
		return guard.Anonymous(), nil
	}
	var out guard.Session
	resp, err := c.request(ctx).SetResult(&out).Get("/api/auth/session")
	if err := check(resp, err); err != nil {
		return guard.Anonymous(), err
	}
	return out, nil
}

func (c *Client) ListIntents(ctx context.Context, q datatable.Query) (domain.Page[models.Intent], error) {
	var out domain.Page[models.Intent]
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetResult(&out).
		Get("/api/nlp/intents")
	if err := check(resp, err); err != nil {
		return domain.Page[models.Intent]{}, err
	}
	return out, nil
}

func (c *Client) CreateIntent(ctx context.Context, in models.IntentInput) (models.Intent, error) {
	var out struct {
		Data models.Intent `json:"data"`
	}
	resp, err := c.request(ctx).SetBody(in).SetResult(&out).Post("/api/nlp/intents")
	if err := check(resp, err); err != nil {
		return models.Intent{}, err
	}
	return out.Data, nil
}

// check turns transport failures and error responses into domain errors.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	msg := http.StatusText(resp.StatusCode())
	var details map[string]string
	if e, ok := resp.Error().(*apiError); ok && e != nil {
		details = e.Details
		switch {
		case e.Error != "":
			msg = e.Error
		case e.Message != "":
			msg = e.Message
		}
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return domain.UnauthorizedError{Msg: msg}
	case http.StatusNotFound:
		return domain.NotFoundError{Err: errors.New(msg)}
	case http.StatusConflict:
		return domain.ConflictError{Msg: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if len(details) > 0 {
			return domain.FieldErrors(details)
		}
		return domain.ValidationError{Msg: msg}
	default:
		return fmt.Errorf("server error (status %d): %s", resp.StatusCode(), msg)
	}
}
