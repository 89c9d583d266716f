// Package gotrue is a client for a GoTrue-compatible auth API.
//
// Every operation funnels through HTTPClient, which merges headers, serializes
// the body, performs one round trip and classifies the response. Client is
// generic over the user and token response shapes so callers can decode into
// extended types.
package gotrue

import (
	"context"
	"net/http"
	"strings"
	"time"

	ctxlog "github.com/ErlanBelekov/gotrue-go/internal/log"
)

const defaultTimeout = 30 * time.Second

type Client[U, T any] struct {
	http *HTTPClient
}

func NewClient[U, T any](httpClient *HTTPClient) *Client[U, T] {
	return &Client[U, T]{http: httpClient}
}

// NewDefaultClient uses the default transport and JSON serializer.
func NewDefaultClient(url string, headers map[string]string, opts ...Option) *Client[UserResponse, TokenResponse] {
	return NewCustomClient[UserResponse, TokenResponse](url, headers, opts...)
}

// NewCustomClient is NewDefaultClient with caller-supplied response shapes.
func NewCustomClient[U, T any](url string, headers map[string]string, opts ...Option) *Client[U, T] {
	httpClient := NewHTTPClient(url, headers, NewTransport(defaultTimeout), NewJSONSerializer(), opts...)
	return NewClient[U, T](httpClient)
}

// HTTP returns the underlying executor, for endpoints the facade does not cover.
func (c *Client[U, T]) HTTP() *HTTPClient {
	return c.http
}

func bearer(jwt string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + jwt}
}

// Settings returns the public settings of the instance.
func (c *Client[U, T]) Settings(ctx context.Context) (*Settings, error) {
	ctx = ctxlog.WithOperation(ctx, "settings")
	return Do[Settings](ctx, c.http, http.MethodGet, "/settings", nil, nil)
}

// Health returns the version information of the instance.
func (c *Client[U, T]) Health(ctx context.Context) (*HealthResponse, error) {
	ctx = ctxlog.WithOperation(ctx, "health")
	return Do[HealthResponse](ctx, c.http, http.MethodGet, "/health", nil, nil)
}

// SignUpWithEmail creates a new user.
func (c *Client[U, T]) SignUpWithEmail(ctx context.Context, email, password string) (*U, error) {
	ctx = ctxlog.WithOperation(ctx, "signup")
	return Do[U](ctx, c.http, http.MethodPost, "/signup", emailPasswordRequest{Email: email, Password: password}, nil)
}

// InviteUserByEmail sends an invite link to email.
func (c *Client[U, T]) InviteUserByEmail(ctx context.Context, email string) (*U, error) {
	ctx = ctxlog.WithOperation(ctx, "invite")
	return Do[U](ctx, c.http, http.MethodPost, "/invite", emailRequest{Email: email}, nil)
}

// Verify confirms a signup, recovery, invite or magic link token.
// password may be nil.
func (c *Client[U, T]) Verify(ctx context.Context, typ VerifyType, token string, password *string) (*T, error) {
	ctx = ctxlog.WithOperation(ctx, "verify")
	body := verifyRequest{
		Type:     VerifyType(strings.ToLower(string(typ))),
		Token:    token,
		Password: password,
	}
	return Do[T](ctx, c.http, http.MethodPost, "/verify", body, nil)
}

// ResetPasswordForEmail sends a recovery email. The link lands on
// <SITE_URL>#access_token=...&type=recovery; the access token can then be
// passed to UpdateUser with a new password.
func (c *Client[U, T]) ResetPasswordForEmail(ctx context.Context, email string) error {
	ctx = ctxlog.WithOperation(ctx, "recover")
	return Send(ctx, c.http, http.MethodPost, "/recover", emailRequest{Email: email}, nil)
}

// UpdateUser changes email, password or custom data of the user owning jwt.
// Nil attributes are not sent.
func (c *Client[U, T]) UpdateUser(ctx context.Context, jwt string, attrs UserAttributes) (*U, error) {
	ctx = ctxlog.WithOperation(ctx, "update_user")
	return Do[U](ctx, c.http, http.MethodPut, "/user", attrs, bearer(jwt))
}

func (c *Client[U, T]) GetUser(ctx context.Context, jwt string) (*U, error) {
	ctx = ctxlog.WithOperation(ctx, "get_user")
	return Do[U](ctx, c.http, http.MethodGet, "/user", nil, bearer(jwt))
}

func (c *Client[U, T]) SignInWithEmail(ctx context.Context, email, password string) (*T, error) {
	ctx = ctxlog.WithOperation(ctx, "signin")
	return Do[T](ctx, c.http, http.MethodPost, "/token?grant_type=password", emailPasswordRequest{Email: email, Password: password}, nil)
}

func (c *Client[U, T]) RefreshAccessToken(ctx context.Context, refreshToken string) (*T, error) {
	ctx = ctxlog.WithOperation(ctx, "refresh")
	return Do[T](ctx, c.http, http.MethodPost, "/token?grant_type=refresh_token", refreshRequest{RefreshToken: refreshToken}, nil)
}

// SignOut revokes all refresh tokens of the user. Issued JWTs stay valid until they expire.
func (c *Client[U, T]) SignOut(ctx context.Context, jwt string) error {
	ctx = ctxlog.WithOperation(ctx, "logout")
	return Send(ctx, c.http, http.MethodPost, "/logout", nil, bearer(jwt))
}

// SendMagicLinkEmail sends a passwordless login link to email.
func (c *Client[U, T]) SendMagicLinkEmail(ctx context.Context, email string) error {
	ctx = ctxlog.WithOperation(ctx, "magiclink")
	return Send(ctx, c.http, http.MethodPost, "/magiclink", emailRequest{Email: email}, nil)
}
