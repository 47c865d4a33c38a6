// Package github talks to GitHub's OAuth endpoints and REST user API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiVersion pins the REST API version header.
const apiVersion = "2022-11-28"

const (
	DefaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	DefaultTokenURL     = "https://github.com/login/oauth/access_token"
	DefaultUserURL      = "https://api.github.com/user"
	DefaultScope        = "read:user"
	DefaultTimeout      = 12 * time.Second
)

var (
	// ErrUnavailable covers transport failures, timeouts and bodies that do
	// not parse.
	ErrUnavailable = errors.New("github unavailable")
	// ErrRejected means GitHub answered but did not accept the credential.
	ErrRejected = errors.New("github rejected credential")
)

// ExchangeError is GitHub's answer to a bad authorization code.
type ExchangeError struct {
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return "oauth code exchange failed"
}

type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string
	AuthorizeURL string
	TokenURL     string
	UserURL      string
	// Timeout bounds every upstream call. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Profile is the subset of the GitHub user resource the registry keeps.
type Profile struct {
	ID        string
	Login     string
	AvatarURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = DefaultUserURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: hc}
}

func (c *Client) AuthorizeURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", c.cfg.Scope)
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades an authorization code for an upstream access token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode token response (status %d): %v", ErrUnavailable, resp.StatusCode, err)
	}
	if out.Error != "" || strings.TrimSpace(out.AccessToken) == "" {
		return "", &ExchangeError{Code: out.Error, Description: out.ErrorDescription}
	}
	return out.AccessToken, nil
}

// FetchProfile resolves an upstream access token to the user it belongs to.
func (c *Client) FetchProfile(ctx context.Context, token string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: fetch user: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Profile{}, fmt.Errorf("%w: user endpoint returned %d", ErrRejected, resp.StatusCode)
	}

	var raw struct {
		ID        json.Number `json:"id"`
		Login     *string     `json:"login"`
		AvatarURL *string     `json:"avatar_url"`
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Profile{}, fmt.Errorf("%w: decode user: %v", ErrUnavailable, err)
	}
	if raw.ID.String() == "" {
		return Profile{}, fmt.Errorf("%w: user payload has no id", ErrRejected)
	}

	p := Profile{ID: raw.ID.String()}
	if raw.Login != nil {
		p.Login = *raw.Login
	}
	if raw.AvatarURL != nil {
		p.AvatarURL = *raw.AvatarURL
	}
	return p, nil
}
