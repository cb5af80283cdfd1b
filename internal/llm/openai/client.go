package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/logman117/ai-manufacturing-vision/internal/common"
	"github.com/logman117/ai-manufacturing-vision/internal/llm"
)

// Analyze implements llm.VisionClient against the Azure OpenAI
// chat/completions API: one user message carrying the prompt text plus a
// data-URL image block per drawing page. Returns the raw response text;
// locating and typing the payload is the parser's job.
func (c *Client) Analyze(ctx context.Context, req llm.VisionRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.analyze.start",
		"req_id", rid,
		"deployment", c.cfg.Deployment,
		"temp", c.cfg.Temperature,
		"prompt_len", len(req.Prompt),
		"images", len(req.Images),
	)

	content := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL(img)},
		})
	}

	body := map[string]any{
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": content},
		},
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.cfg.Endpoint, c.cfg.Deployment, c.cfg.APIVersion)

	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.analyze.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &common.ServiceTransientError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		return "", &common.ServiceTransientError{Err: fmt.Errorf("no choices in response")}
	}

	text := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.analyze.ok",
		"req_id", rid,
		"response_bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// post sends the request and classifies failures into the service error
// taxonomy: 401/403 are fatal auth errors, 429 is rate limiting (Retry-After
// honored), 408/5xx and network errors are transient.
func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &common.ServiceTransientError{Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("llm.analyze.body_close_error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &common.ServiceAuthError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", snippet(raw)),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		secs := common.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, common.NewServiceRateLimitError(fmt.Errorf("status 429: %s", snippet(raw)), secs)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return nil, &common.ServiceTransientError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", snippet(raw)),
		}
	default:
		return nil, fmt.Errorf("inference service status %d: %s", resp.StatusCode, snippet(raw))
	}
}

func dataURL(img llm.ImageAttachment) string {
	mt := img.MIMEType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func snippet(raw []byte) string {
	s := string(raw)
	if len(s) > 512 {
		s = s[:512] + "...(truncated)"
	}
	return s
}
