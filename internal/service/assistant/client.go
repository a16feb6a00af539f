// Package assistant is the REST client for the remote Green Haven assistant service.
package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultChannel is the registration channel reported by this client.
const DefaultChannel = "web"

// Client issues the four fixed request shapes of the assistant API.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each request; zero disables it.
	Timeout time.Duration
	Logger  zerolog.Logger
	// HTTPClient replaces the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a client for the service rooted at opts.BaseURL.
func NewClient(opts Options) *Client {
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	return &Client{
		http: rc,
		log:  opts.Logger.With().Str("component", "assistant").Logger(),
	}
}

// Register creates an account. Channel defaults to DefaultChannel.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if req.Channel == "" {
		req.Channel = DefaultChannel
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/register")
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode()).Msg("register rejected")
		return RegisterResult{}, &HTTPError{
			Op:         "register",
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(body),
			Body:       string(body),
		}
	}

	msg, _ := registerMessage(body)
	c.log.Info().Str("channel", req.Channel).Msg("account registered")
	return RegisterResult{Msg: msg}, nil
}

// Login exchanges credentials for an access token and conversation handle.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: email, Password: password}).
		Post("/login")
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode()).Msg("login rejected")
		return LoginResult{}, newRawHTTPError("login", resp.StatusCode(), body)
	}

	result, err := parseLogin(body)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	c.log.Info().Str("user_id", result.UserID).Msg("logged in")
	return result, nil
}

// SendMessage posts a user query and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (Reply, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(req.AccessToken).
		SetQueryParams(scopeParams(req.ChatScope)).
		SetQueryParam("user_query", req.Query).
		SetQueryParam("phone_number", req.PhoneNumber).
		Post("/chat/")
	if err != nil {
		return Reply{}, fmt.Errorf("send message: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode()).Str("user_id", req.UserID).Msg("chat request failed")
		return Reply{}, newRawHTTPError("send message", resp.StatusCode(), body)
	}

	reply := Reply{Response: replyText(body)}
	c.log.Debug().Str("user_id", req.UserID).Int("length", len(reply.Response)).Msg("reply received")
	return reply, nil
}

// ClearChat deletes the server-side history of the scoped conversation.
func (c *Client) ClearChat(ctx context.Context, scope ChatScope) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(scope.AccessToken).
		SetQueryParams(scopeParams(scope)).
		Delete("/chat/clear/")
	if err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode()).Str("user_id", scope.UserID).Msg("clear chat failed")
		return newRawHTTPError("clear chat", resp.StatusCode(), resp.Body())
	}
	return nil
}

func scopeParams(scope ChatScope) map[string]string {
	return map[string]string{
		"organization_id":      scope.OrganizationID,
		"user_id":              scope.UserID,
		"assistant_session_id": scope.AssistantSessionID,
	}
}

func newRawHTTPError(op string, status int, body []byte) *HTTPError {
	return &HTTPError{Op: op, StatusCode: status, Message: strings.TrimSpace(string(body)), Body: string(body)}
}
