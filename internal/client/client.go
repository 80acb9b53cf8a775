// Package client is a Go client for the CampusConnect REST API. It
// translates the server's resource shapes into the names the UI uses and
// applies optimistic updates that roll back when a request fails.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campusconnect/campus/internal/models"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Error is a non-2xx answer from the API.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("client: %s %s: %s (status %d)", e.Method, e.Path, e.Message, e.Status)
}

// Client talks to one API server as one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a Client for baseURL, e.g. http://localhost:5000/api. token
// may be empty for public endpoints and login.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Token returns the bearer token in use.
func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Error != "" {
			apiErr.Message = msg.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// Session is a signed-in user.
type Session struct {
	Token string
	User  models.User
}

type authResponse struct {
	Data struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	} `json:"data"`
}

// Login signs in and makes later requests on behalf of the user.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return Session{}, err
	}
	c.token = resp.Data.Token
	return Session{Token: resp.Data.Token, User: resp.Data.User}, nil
}

// Register creates an account and signs in as it.
func (c *Client) Register(ctx context.Context, username, email, password string) (Session, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return Session{}, err
	}
	c.token = resp.Data.Token
	return Session{Token: resp.Data.Token, User: resp.Data.User}, nil
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/profile", nil, &u)
	return u, err
}
