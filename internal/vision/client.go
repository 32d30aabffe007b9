package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/x-xaie/cloud-IR/internal/errors"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

const (
	analyzePath = "/vision/v3.2/analyze"
	readPath    = "/vision/v3.2/read/analyze"

	// All feature categories needed downstream, requested in one round trip.
	visualFeatures = "Categories,Tags,Description,Faces,Objects,Color,Adult,ImageType"
)

// Client wraps the external vision provider. It exposes the synchronous
// feature-extraction call and the asynchronous text-extraction
// sub-protocol. The client holds no per-request state; one instance is
// constructed at startup and shared across pipeline runs.
type Client struct {
	endpoint     string
	key          string
	http         *http.Client
	clock        Clock
	pollInterval time.Duration
	pollAttempts int
}

// ClientConfig configures a vision Client.
type ClientConfig struct {
	Endpoint     string
	Key          string
	Timeout      time.Duration
	PollInterval time.Duration
	PollAttempts int
	Clock        Clock
}

// NewClient creates a vision provider client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	// Transport tuned for small JSON round trips against a single host.
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		key:          cfg.Key,
		http:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		clock:        cfg.Clock,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
	}
}

// AnalyzeImage performs the synchronous feature-extraction call.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (*models.FeatureSet, error) {
	body, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode analyze request", err)
	}

	reqURL := c.endpoint + analyzePath + "?visualFeatures=" + visualFeatures
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build analyze request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError("vision provider unreachable", err)
	}
	defer resp.Body.Close()

	if err := classifyHTTPStatus(resp); err != nil {
		return nil, err
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewProviderError("failed to decode analyze response", err)
	}

	return parsed.toFeatureSet(), nil
}

// classifyHTTPStatus maps a non-OK provider response to the error
// taxonomy: 429 rate-limited, other 4xx invalid image (caller's fault),
// 5xx transient provider failure.
func classifyHTTPStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError("vision provider rate limit exceeded", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		detail := readErrorBody(resp.Body)
		return apperrors.NewValidationError(
			fmt.Sprintf("vision provider rejected image (status %d): %s", resp.StatusCode, detail), nil)
	default:
		return apperrors.NewProviderError(
			fmt.Sprintf("vision provider error: status %d", resp.StatusCode), nil)
	}
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "no detail"
	}
	return string(b)
}
