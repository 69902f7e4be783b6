package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const sendTimeout = 10 * time.Second

// postJSON posts payload to url and maps the response status.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, snippet, domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, snippet, domain.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("HTTP %d: %s: %w", resp.StatusCode, snippet, domain.ErrTransient)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
}
