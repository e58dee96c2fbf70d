package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// errorDecoder pulls a provider's error message out of a failed response
// body. It returns "" when the body has no recognizable message.
type errorDecoder func(body io.Reader) string

// postJSON is the transport for providers reached over plain REST.
func postJSON(ctx context.Context, client *http.Client, url string, headers http.Header, payload, out any, decodeErr errorDecoder) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if decodeErr != nil {
			if msg := decodeErr(io.LimitReader(resp.Body, 64<<10)); msg != "" {
				return fmt.Errorf("api error: %s", msg)
			}
		}
		return fmt.Errorf("api error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
