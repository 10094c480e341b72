package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAwarder calls an external rewards API.
//
//	POST {base}/v1/awards/promoters/{promoterID}/events/{eventID}
//	POST {base}/v1/awards/guest-lists/{guestListID}
//
// Both answer {"success": bool, "gifts": [{"id", "description"}]}.
type HTTPAwarder struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAwarder returns an awarder for baseURL.  A zero timeout means 3s.
func NewHTTPAwarder(baseURL, token string, timeout time.Duration) *HTTPAwarder {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPAwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAwarder) AwardForPromoter(ctx context.Context, promoterID, eventID uint64) (Result, error) {
	return a.post(ctx, fmt.Sprintf("/v1/awards/promoters/%d/events/%d", promoterID, eventID))
}

func (a *HTTPAwarder) AwardForGuestList(ctx context.Context, guestListID uint64) (Result, error) {
	return a.post(ctx, fmt.Sprintf("/v1/awards/guest-lists/%d", guestListID))
}

func (a *HTTPAwarder) post(ctx context.Context, path string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader([]byte("{}")))
	if err != nil {
		return Result{}, fmt.Errorf("build reward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("reward request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("reward service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode reward response: %w", err)
	}
	return res, nil
}
