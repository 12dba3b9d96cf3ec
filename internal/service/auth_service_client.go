package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AuthServiceClient talks to the external auth service.
type AuthServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAuthServiceClient(baseURL string, timeout time.Duration) *AuthServiceClient {
	return &AuthServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type VerifyTokenResponse struct {
	Valid       bool     `json:"valid"`
	UserID      *string  `json:"user_id,omitempty"`
	Email       *string  `json:"email,omitempty"`
	DisplayName *string  `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	ExpiresAt   *int64   `json:"expires_at,omitempty"`
}

// VerifyToken asks the auth service whether token is valid and whom it belongs to.
func (c *AuthServiceClient) VerifyToken(ctx context.Context, token string) (*VerifyTokenResponse, error) {
	body, err := json.Marshal(VerifyTokenRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("auth service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response VerifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response, nil
}
