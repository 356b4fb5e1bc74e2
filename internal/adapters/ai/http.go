package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/pkg/errors"
)

const defaultRequestTimeout = 30 * time.Second

// httpCore is the shared request machinery embedded by every provider.
// It owns the HTTP client, the rate limiter and the error taxonomy for
// outbound vendor calls.
type httpCore struct {
	name    ProviderName
	client  *http.Client
	limiter RateLimiter
}

func newHTTPCore(name ProviderName, timeout time.Duration, limiter RateLimiter) httpCore {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}
	return httpCore{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// doJSON executes one vendor request. A non-nil payload is sent as a
// JSON body; a non-nil out receives the decoded response. Non-2xx
// responses become *errors.APIError with the raw body preserved.
func (c *httpCore) doJSON(ctx context.Context, method, url string, headers map[string]string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "%s: marshal request", c.name)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", c.name)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(errors.ErrNetwork, "%s: %v", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: read response: %v", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewAPIError(string(c.name), resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(errors.ErrInvalidResponse, "%s: decode response: %v", c.name, err)
		}
	}
	return nil
}

// fetchImage downloads an image and returns its base64 payload and MIME
// type for vendors that require inline image data. The MIME type comes
// from the Content-Type header and defaults to image/jpeg.
func (c *httpCore) fetchImage(ctx context.Context, imageURL string) (data, mimeType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrImageDownload, "build request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", errors.Wrapf(errors.ErrImageDownload, "%s: %v", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", errors.Wrapf(errors.ErrImageDownload, "%s: status %d", imageURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrImageDownload, "%s: read body: %v", imageURL, err)
	}
	if len(raw) == 0 {
		return "", "", errors.Wrapf(errors.ErrImageDownload, "%s: empty body", imageURL)
	}

	mimeType = resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return base64.StdEncoding.EncodeToString(raw), mimeType, nil
}

// estimateTokens approximates a token count from text length using the
// common 4-characters-per-token heuristic, rounding up.
func estimateTokens(text string) int64 {
	return int64((len(text) + 3) / 4)
}

// requireAPIKey fails fast before any network activity for providers
// with no credential configured.
func requireAPIKey(cfg *Config) error {
	if cfg.APIKey() == "" {
		return errors.Wrapf(errors.ErrMissingAPIKey, "provider %s", cfg.Name())
	}
	return nil
}
