package keyrunes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/keyrunes/keyrunes-go/metrics"
)

// DefaultTimeout bounds each HTTP request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the root of the Keyrunes service, e.g.
	// "https://keyrunes.example.com". A trailing slash is stripped.
	BaseURL string
	// APIKey is sent as X-API-Key on requests made without a bearer token.
	APIKey string
	// OrganizationKey is sent as X-Organization-Key when set. Conventionally
	// read from the KEYRUNES_ORG_KEY environment variable (see EnvConfig).
	OrganizationKey string
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger receives debug-level request logging. Defaults to a no-op.
	Logger *zerolog.Logger
	// HTTPClient overrides the underlying transport. The configured Timeout
	// is applied to it only when it has none of its own.
	HTTPClient *http.Client
}

// Client performs synchronous HTTP calls against a Keyrunes deployment and
// maps responses into typed models. It holds at most one bearer token and
// its decoded claims; those fields are replaced wholesale by Login, SetToken
// and ClearToken and are not internally synchronized — use one Client per
// logical session or serialize access externally.
type Client struct {
	baseURL string
	apiKey  string
	orgKey  string
	timeout time.Duration
	httpc   *http.Client
	log     zerolog.Logger

	token  string
	claims jwt.MapClaims
}

// New builds a Client from opts. It never performs network I/O.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	} else if httpc.Timeout == 0 {
		httpc.Timeout = timeout
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		orgKey:  opts.OrganizationKey,
		timeout: timeout,
		httpc:   httpc,
		log:     log,
	}
}

// BaseURL returns the configured base URL with any trailing slash removed.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey returns the configured API key, if any.
func (c *Client) APIKey() string { return c.apiKey }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Token returns the currently held bearer token, or "" when none is set.
func (c *Client) Token() string { return c.token }

// SetToken installs a bearer token directly, bypassing Login. Claims are
// decoded best-effort; an opaque token still authenticates requests but
// cannot back GetCurrentUser.
func (c *Client) SetToken(token string) {
	c.token = token
	claims, err := decodeClaims(token)
	if err != nil {
		c.log.Debug().Err(err).Msg("token is not a decodable JWT; claims unavailable")
		c.claims = nil
		return
	}
	c.claims = claims
}

// ClearToken drops the held token and claims.
func (c *Client) ClearToken() {
	c.token = ""
	c.claims = nil
}

// Close releases the underlying HTTP connections. The Client must not be
// used afterwards.
func (c *Client) Close() error {
	c.httpc.CloseIdleConnections()
	return nil
}

// RegisterUser registers a new user and returns the created account. Local
// field constraints are checked before any network call.
func (c *Client) RegisterUser(ctx context.Context, reg UserRegistration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	var env userEnvelope
	path := fmt.Sprintf("/api/v1/%s/register", namespaceOf(reg.Namespace))
	if err := c.do(ctx, http.MethodPost, path, nil, &reg, &env); err != nil {
		return nil, err
	}
	return normalizeUser(env.payload())
}

// RegisterAdmin registers an administrator via the admin registration
// endpoint. The returned User's admin status reflects the service payload:
// an explicit is_admin field, or membership in the "admins" group.
func (c *Client) RegisterAdmin(ctx context.Context, reg AdminRegistration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	var env userEnvelope
	path := fmt.Sprintf("/api/v1/%s/register/admin", namespaceOf(reg.Namespace))
	if err := c.do(ctx, http.MethodPost, path, nil, &reg, &env); err != nil {
		return nil, err
	}
	return normalizeUser(env.payload())
}

// Login authenticates against the service and, on success, stores the
// resulting access token and its decoded claims as the client's current
// authentication state.
func (c *Client) Login(ctx context.Context, creds LoginCredentials) (*Token, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var w wireToken
	path := fmt.Sprintf("/api/v1/%s/login", namespaceOf(creds.Namespace))
	if err := c.do(ctx, http.MethodPost, path, nil, &creds, &w); err != nil {
		return nil, err
	}

	token, err := parseTokenResponse(&w)
	if err != nil {
		return nil, err
	}

	c.token = token.AccessToken
	claims, err := decodeClaims(token.AccessToken)
	if err != nil {
		c.log.Debug().Err(err).Msg("access token is not a decodable JWT; claims unavailable")
		c.claims = nil
	} else {
		c.claims = claims
	}
	return token, nil
}

// GetCurrentUser resolves the authenticated user from the held token claims
// without a network call.
func (c *Client) GetCurrentUser() (*User, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: no token held; call Login or SetToken first", ErrAuthentication)
	}
	if c.claims == nil {
		return nil, fmt.Errorf("%w: held token carries no decodable claims", ErrAuthentication)
	}
	return userFromClaims(c.claims)
}

// GetUser fetches a user by id. A 404 surfaces as ErrUserNotFound.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var env userEnvelope
	path := "/api/v1/users/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &env); err != nil {
		return nil, err
	}
	return normalizeUser(env.payload())
}

// HasGroup reports whether userID belongs to groupID. An unknown user or
// group reads as "no access": not-found responses are downgraded to
// (false, nil) rather than surfaced as errors.
func (c *Client) HasGroup(ctx context.Context, userID, groupID string) (bool, error) {
	var w wireGroupCheck
	path := "/api/v1/groups/" + url.PathEscape(groupID) + "/check"
	query := url.Values{"user_id": []string{userID}}

	if err := c.do(ctx, http.MethodGet, path, query, nil, &w); err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrGroupNotFound) {
			metrics.GroupChecksTotal.WithLabelValues("not_found").Inc()
			return false, nil
		}
		return false, err
	}

	check := w.groupCheck(userID, groupID)
	result := "denied"
	if check.HasAccess {
		result = "granted"
	}
	metrics.GroupChecksTotal.WithLabelValues(result).Inc()
	return check.HasAccess, nil
}

// GetUserGroups returns the ordered group ids of the given user, or of the
// current authenticated user when userID is empty (which requires a held
// token).
func (c *Client) GetUserGroups(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		user, err := c.GetCurrentUser()
		if err != nil {
			return nil, err
		}
		return user.Groups, nil
	}

	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Groups, nil
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

// do performs one HTTP exchange and decodes a successful JSON response into
// out (when non-nil). Non-success statuses and transport failures are mapped
// into the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.orgKey != "" {
		req.Header.Set("X-Organization-Key", c.orgKey)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, "network_error").Inc()
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	metrics.RequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%w: decode response: %v", ErrService, err)
			}
		}
		return nil
	}
	return apiError(resp.StatusCode, data)
}

// apiError maps a non-success HTTP status into the error taxonomy, keeping
// the status code and raw body for caller inspection.
func apiError(status int, body []byte) error {
	kind := ErrService
	switch status {
	case http.StatusUnauthorized:
		kind = ErrAuthentication
	case http.StatusForbidden:
		kind = ErrAuthorization
	case http.StatusNotFound:
		kind = ErrUserNotFound
	}
	return &APIError{Kind: kind, Status: status, Body: strings.TrimSpace(string(body))}
}

func namespaceOf(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// wireUser is the raw user object as the service sends it. Pointer fields
// distinguish "absent" from zero so defaults can be applied.
type wireUser struct {
	ID         string            `json:"id"`
	ExternalID string            `json:"external_id"`
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	Groups     []string          `json:"groups"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  *time.Time        `json:"created_at"`
	UpdatedAt  *time.Time        `json:"updated_at"`
	IsActive   *bool             `json:"is_active"`
	IsAdmin    *bool             `json:"is_admin"`
}

// userEnvelope accepts both response shapes: a user object nested under a
// "user" key, or the bare object at the top level.
type userEnvelope struct {
	wireUser
	User *wireUser `json:"user"`
}

func (e *userEnvelope) payload() *wireUser {
	if e.User != nil {
		return e.User
	}
	return &e.wireUser
}

// normalizeUser maps a wire user into the User model: "id" preferred over
// "external_id", is_active defaulting to true, and admin status derived from
// the "admins" group when not explicitly reported.
func normalizeUser(w *wireUser) (*User, error) {
	id := w.ID
	if id == "" {
		id = w.ExternalID
	}

	isActive := true
	if w.IsActive != nil {
		isActive = *w.IsActive
	}

	isAdmin := false
	if w.IsAdmin != nil {
		isAdmin = *w.IsAdmin
	}
	if containsString(w.Groups, adminGroup) {
		isAdmin = true
	}

	user := &User{
		ID:         id,
		Username:   w.Username,
		Email:      w.Email,
		Groups:     w.Groups,
		Attributes: w.Attributes,
		IsActive:   isActive,
		IsAdmin:    isAdmin,
	}
	if w.CreatedAt != nil {
		user.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		user.UpdatedAt = *w.UpdatedAt
	}

	if err := wrapValidation(validate.Struct(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// wireToken accepts both login response shapes: one keyed "token", the other
// keyed "access_token" with token_type and expires_in.
type wireToken struct {
	Token        string    `json:"token"`
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         *wireUser `json:"user"`
}

func parseTokenResponse(w *wireToken) (*Token, error) {
	access := w.AccessToken
	if access == "" {
		access = w.Token
	}
	if access == "" {
		return nil, fmt.Errorf("%w: login response carries no token", ErrService)
	}

	tokenType := w.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	token := &Token{
		AccessToken:  access,
		TokenType:    tokenType,
		ExpiresIn:    w.ExpiresIn,
		RefreshToken: w.RefreshToken,
	}
	if w.User != nil {
		user, err := normalizeUser(w.User)
		if err != nil {
			return nil, err
		}
		token.User = user
	}
	return token, nil
}

type wireGroupCheck struct {
	UserID    string     `json:"user_id"`
	GroupID   string     `json:"group_id"`
	HasAccess bool       `json:"has_access"`
	CheckedAt *time.Time `json:"checked_at"`
}

func (w *wireGroupCheck) groupCheck(userID, groupID string) GroupCheck {
	check := NewGroupCheck(userID, groupID, w.HasAccess)
	if w.UserID != "" {
		check.UserID = w.UserID
	}
	if w.GroupID != "" {
		check.GroupID = w.GroupID
	}
	if w.CheckedAt != nil {
		check.CheckedAt = *w.CheckedAt
	}
	return check
}
