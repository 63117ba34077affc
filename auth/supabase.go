package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no Supabase auth URL was provided.
var ErrNotConfigured = errors.New("supabase auth not configured")

// User is the authenticated identity Supabase hands back. The ID becomes
// the history partition key for every analyze/history call.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	User             *User  `json:"user"`
	AccessToken      string `json:"access_token"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	// Signup responses return the user object at the top level.
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SupabaseClient forwards credential flows to the Supabase Auth (GoTrue)
// REST API. The service never verifies passwords itself.
type SupabaseClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewSupabaseClient creates a client for the given auth base URL
// (e.g. https://project.supabase.co/auth/v1).
func NewSupabaseClient(baseURL, anonKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether an auth URL is present.
func (c *SupabaseClient) Configured() bool {
	return c.baseURL != ""
}

// SignUp registers a new email/password user with Supabase.
func (c *SupabaseClient) SignUp(ctx context.Context, email, password string) (*User, error) {
	return c.credentialCall(ctx, "/signup", email, password)
}

// SignIn authenticates an email/password user with Supabase.
func (c *SupabaseClient) SignIn(ctx context.Context, email, password string) (*User, error) {
	return c.credentialCall(ctx, "/token?grant_type=password", email, password)
}

func (c *SupabaseClient) credentialCall(ctx context.Context, path, email, password string) (*User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call supabase auth: %w", err)
	}
	defer resp.Body.Close()

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("failed to decode supabase response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := authResp.ErrorDescription
		if msg == "" {
			msg = authResp.Msg
		}
		if msg == "" {
			msg = fmt.Sprintf("supabase auth returned status %d", resp.StatusCode)
		}
		return nil, errors.New(msg)
	}

	if authResp.User != nil {
		return authResp.User, nil
	}
	if authResp.ID != "" {
		return &User{ID: authResp.ID, Email: authResp.Email}, nil
	}
	return nil, errors.New("supabase auth returned no user")
}
