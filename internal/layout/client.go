package layout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/logger"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	log        *slog.Logger
}

type requestPayload struct {
	File                      string `json:"file"`
	FileType                  int    `json:"fileType"`
	UseDocPreprocessor        bool   `json:"useDocPreprocessor"`
	UseSealRecognition        bool   `json:"useSealRecognition"`
	UseTableRecognition       bool   `json:"useTableRecognition"`
	UseFormulaRecognition     bool   `json:"useFormulaRecognition"`
	UseChartRecognition       bool   `json:"useChartRecognition"`
	UseRegionDetection        bool   `json:"useRegionDetection"`
	FormatBlockContent        bool   `json:"formatBlockContent"`
	UseTextlineOrientation    bool   `json:"useTextlineOrientation"`
	UseDocOrientationClassify bool   `json:"useDocOrientationClassify"`
	Visualize                 bool   `json:"visualize"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.LayoutTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.LayoutRateLimitRPS),
		log:        logger.Get("layout"),
	}
}

// Extract sends the file at path to the layout-parsing service.
func (c *Client) Extract(ctx context.Context, path string, kind internal.FileKind) (internal.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	return c.ExtractBytes(ctx, data, kind)
}

func (c *Client) ExtractBytes(ctx context.Context, data []byte, kind internal.FileKind) (internal.ExtractionResult, error) {
	var fileType int
	switch kind {
	case internal.KindPDF:
		fileType = 0
	case internal.KindImage:
		fileType = 1
	default:
		return internal.ExtractionResult{}, fmt.Errorf("%w for layout parsing: %s", internal.ErrUnsupportedFormat, kind)
	}

	payload, err := json.Marshal(requestPayload{
		File:                  base64.StdEncoding.EncodeToString(data),
		FileType:              fileType,
		UseSealRecognition:    true,
		UseTableRecognition:   true,
		UseFormulaRecognition: true,
		UseRegionDetection:    true,
		FormatBlockContent:    true,
		Visualize:             true,
	})
	if err != nil {
		return internal.ExtractionResult{}, err
	}

	start := time.Now()
	body, err := c.post(ctx, payload)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	result, err := DecodeResult(body)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	c.log.Info("layout parsed", "pages", len(result.LayoutParsingResults), "ms", time.Since(start).Milliseconds())
	return result, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	if strings.TrimSpace(c.cfg.LayoutAPIToken) == "" {
		return nil, errors.New("missing LAYOUT_API_TOKEN")
	}
	if strings.TrimSpace(c.cfg.LayoutAPIURL) == "" {
		return nil, errors.New("missing LAYOUT_API_URL")
	}

	attempts := c.cfg.LayoutMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LayoutAPIURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "token "+c.cfg.LayoutAPIToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Warn("layout request failed", "attempt", attempt, "err", err)
			if err := backoff(ctx, attempt, attempts); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = readErr
			c.log.Warn("layout response read failed", "attempt", attempt, "err", readErr)
			if err := backoff(ctx, attempt, attempts); err != nil {
				return nil, err
			}
			continue
		}

		if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			return nil, fmt.Errorf("layout api returned html instead of json: status=%d body=%s", resp.StatusCode, preview(body))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				lastErr = fmt.Errorf("layout status %d", resp.StatusCode)
				c.log.Warn("layout api retryable status", "attempt", attempt, "status", resp.StatusCode)
				if err := backoff(ctx, attempt, attempts); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("layout api error: status=%d body=%s", resp.StatusCode, preview(body))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("layout request failed")
	}
	return nil, lastErr
}

func backoff(ctx context.Context, attempt, attempts int) error {
	if attempt >= attempts {
		return nil
	}
	d := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
	return sleepCtx(ctx, d)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func preview(body []byte) string {
	const max = 2000
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

// DecodeResult reads a layout-parsing response, with or without the outer
// "result" wrapper. A payload without layoutParsingResults is rejected.
func DecodeResult(body []byte) (internal.ExtractionResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return internal.ExtractionResult{}, fmt.Errorf("decode layout response: %w", err)
	}
	if inner, ok := top["result"]; ok && !bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return internal.ExtractionResult{}, fmt.Errorf("decode layout result: %w", err)
		}
	}

	raw, ok := top["layoutParsingResults"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return internal.ExtractionResult{}, &internal.MissingFieldError{Field: "layoutParsingResults"}
	}

	var result internal.ExtractionResult
	if err := json.Unmarshal(raw, &result.LayoutParsingResults); err != nil {
		return internal.ExtractionResult{}, fmt.Errorf("decode layoutParsingResults: %w", err)
	}
	if result.LayoutParsingResults == nil {
		result.LayoutParsingResults = []internal.LayoutPage{}
	}
	return result, nil
}
