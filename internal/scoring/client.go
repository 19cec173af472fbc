package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alert-service/internal/models"
)

// Client fetches a user's current health score from the analysis service.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ComputeScore calls GET {base}/users/{id}/health-score.
func (c *Client) ComputeScore(ctx context.Context, userID string) (models.HealthScore, error) {
	endpoint := fmt.Sprintf("%s/users/%s/health-score", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.HealthScore{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.HealthScore{}, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.HealthScore{}, fmt.Errorf("score for user %s: %w", userID, models.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return models.HealthScore{}, fmt.Errorf("scoring service returned status %d", resp.StatusCode)
	}

	var score models.HealthScore
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		return models.HealthScore{}, fmt.Errorf("decode score: %w", err)
	}
	return score, nil
}
