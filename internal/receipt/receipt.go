package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmfarrell/trolley/internal/model"
)

// Line is one (name, price) pair extracted from a receipt image.
type Line struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Match pairs a receipt line with the list item it applies to.
type Match struct {
	ItemID   int64   `json:"item_id"`
	ItemName string  `json:"item_name"`
	Line     string  `json:"line"`
	NewPrice float64 `json:"new_price"`
}

// Service posts receipt images to the external parsing service. Failures
// degrade to an empty line list; a bad scan never fails the flow that
// triggered it.
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a receipt parser client. An empty baseURL disables
// parsing; Parse then always returns no lines.
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Parse sends the image payload to the parser and returns the extracted
// lines. Any failure yields an empty result, never an error to the caller's
// user-visible flow.
func (s *Service) Parse(ctx context.Context, image []byte) []Line {
	if s.baseURL == "" || len(image) == 0 {
		return nil
	}

	var lines []Line
	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ls, err := s.parse(ctx, image)
		if err != nil {
			return retry.RetryableError(err)
		}
		lines = ls
		return nil
	})
	if err != nil {
		return nil
	}
	return lines
}

func (s *Service) parse(ctx context.Context, image []byte) ([]Line, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/parse", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("receipt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("receipt parser returned status %d", resp.StatusCode)
	}

	var out struct {
		Items []Line `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode receipt response: %w", err)
	}
	return out.Items, nil
}

// MatchLines fuzzy-matches receipt lines against list items: case-insensitive
// substring containment in either direction. Each item matches at most once;
// unmatched lines are silently dropped.
func MatchLines(lines []Line, items []model.ShoppingItem) []Match {
	var matches []Match
	used := make(map[int64]bool)

	for _, line := range lines {
		ln := strings.ToLower(strings.TrimSpace(line.Name))
		if ln == "" || line.Price < 0 {
			continue
		}
		for _, item := range items {
			if used[item.ID] {
				continue
			}
			in := strings.ToLower(strings.TrimSpace(item.Name))
			if in == "" {
				continue
			}
			if strings.Contains(ln, in) || strings.Contains(in, ln) {
				used[item.ID] = true
				matches = append(matches, Match{
					ItemID:   item.ID,
					ItemName: item.Name,
					Line:     line.Name,
					NewPrice: line.Price,
				})
				break
			}
		}
	}
	return matches
}
