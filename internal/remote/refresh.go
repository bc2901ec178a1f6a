package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/kazz187/taskboard/pkg/cerr"
)

// RefreshPath is served next to the task procedures and trades a refresh
// token for a new bearer token.
const RefreshPath = "/refresh"

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type tokenRefresher struct {
	url          string
	refreshToken string
	httpClient   *http.Client
}

// NewTokenRefresher returns a Refresher that posts refreshToken to
// baseURL+RefreshPath. A nil httpClient uses http.DefaultClient.
func NewTokenRefresher(baseURL, refreshToken string, httpClient *http.Client) Refresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &tokenRefresher{url: baseURL + RefreshPath, refreshToken: refreshToken, httpClient: httpClient}
}

func (r *tokenRefresher) Refresh(ctx context.Context) (string, error) {
	body, err := sonic.ConfigStd.Marshal(RefreshRequest{RefreshToken: r.refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", cerr.WrapRemoteError("refresh token", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", cerr.NewError(cerr.Unauthenticated,
			fmt.Sprintf("refresh rejected with status %d", resp.StatusCode), nil)
	}
	var out RefreshResponse
	if err := sonic.ConfigStd.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if out.Token == "" {
		return "", cerr.NewError(cerr.Unauthenticated, "refresh returned no token", nil)
	}
	return out.Token, nil
}
