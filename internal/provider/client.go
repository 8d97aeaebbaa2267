package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a GoTrue-compatible HTTP implementation of Provider.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	events  chan Event
}

// NewClient creates a client for the identity provider at baseURL. jwtSecret
// is the shared secret the provider signs access tokens with.
func NewClient(baseURL, jwtSecret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  jwtSecret,
		http:    &http.Client{Timeout: 10 * time.Second},
		events:  make(chan Event, 16),
	}
}

// Events returns the session-state change stream.
func (c *Client) Events() <-chan Event {
	return c.events
}

type credentials struct {
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type apiError struct {
	Code        string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
	Description string `json:"error_description"`
}

// SignInWithPassword exchanges a credential for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.token(ctx, "/token?grant_type=password", credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	c.emit(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// SignUp registers a new credential. When the provider reports the email as
// already registered, ErrIdentityExists is returned so callers can fall back
// to sign-in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.token(ctx, "/signup", credentials{Email: email, Password: password})
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) && identityExists(perr) {
			return nil, fmt.Errorf("%s: %w", perr.Message, ErrIdentityExists)
		}
		return nil, err
	}
	c.emit(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// CurrentSession exchanges a refresh token for a live session.
func (c *Client) CurrentSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}
	sess, err := c.token(ctx, "/token?grant_type=refresh_token", credentials{RefreshToken: refreshToken})
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) && perr.Status < 500 {
			// The token was rejected; there is no session to recover.
			return nil, fmt.Errorf("%s: %w", perr.Message, ErrNoSession)
		}
		return nil, err
	}
	c.emit(Event{Type: EventTokenRefreshed, Session: sess})
	return sess, nil
}

// SignOut revokes the session behind the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("building logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity provider: %w", err)
	}
	defer resp.Body.Close()

	// A 401/404 means the session is already gone, which is the desired end
	// state.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusNotFound {
		return parseError(resp)
	}

	c.emit(Event{Type: EventSignedOut})
	return nil
}

func (c *Client) token(ctx context.Context, path string, body credentials) (*Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	identity, err := ParseIdentity(tr.AccessToken, c.secret)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Identity:     identity,
	}, nil
}

// emit publishes an event without blocking. Events are advisory; a consumer
// that is not listening simply misses them.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var ae apiError
	_ = json.Unmarshal(body, &ae)

	message := ae.Msg
	if message == "" {
		message = ae.Message
	}
	if message == "" {
		message = ae.Description
	}
	if message == "" {
		message = resp.Status
	}

	return &Error{Status: resp.StatusCode, Code: ae.Code, Message: message}
}

func identityExists(e *Error) bool {
	return e.Code == "user_already_exists" ||
		strings.Contains(strings.ToLower(e.Message), "already registered")
}

var _ Provider = (*Client)(nil)
