package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultCategory is returned when neither the remote classifier nor the
// keyword fallback recognizes a name.
const DefaultCategory = "Other"

// Service resolves an item name to a category. It calls the remote
// classifier when one is configured and degrades to the built-in keyword
// table on any failure: categorization must never fail the add-item flow.
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a classifier client. An empty baseURL disables the
// remote call entirely; only the keyword fallback is used.
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Categorize returns a category for the item name. The remote service is
// retried a few times with capped backoff before falling back.
func (s *Service) Categorize(ctx context.Context, name string) string {
	if s.baseURL == "" {
		return Fallback(name)
	}

	var category string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := s.classify(ctx, name)
		if err != nil {
			return retry.RetryableError(err)
		}
		category = c
		return nil
	})
	if err != nil || category == "" {
		return Fallback(name)
	}
	return category
}

func (s *Service) classify(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode classifier response: %w", err)
	}
	return out.Category, nil
}
