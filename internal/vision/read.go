package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

// maxTextLines caps the stored line sequence to the first N lines.
const maxTextLines = 20

// pollOutcome classifies a provider-reported operation status.
type pollOutcome int

const (
	pollContinue pollOutcome = iota
	pollSucceeded
	pollFailed
)

// classifyReadStatus is the pure transition function of the poll state
// machine. Unknown statuses are treated as still-running so a provider
// rollout cannot fail otherwise-healthy operations.
func classifyReadStatus(status string) pollOutcome {
	switch status {
	case "succeeded":
		return pollSucceeded
	case "failed":
		return pollFailed
	default: // "notStarted", "running", anything unrecognized
		return pollContinue
	}
}

// ExtractText runs the submit-then-poll text-extraction sub-protocol.
// Failure and timeout degrade to Detected=false with a diagnostic note;
// this method never returns an error because text extraction is
// non-fatal to the enrichment pipeline.
func (c *Client) ExtractText(ctx context.Context, imageURL string) models.TextResult {
	opURL, err := c.submitRead(ctx, imageURL)
	if err != nil {
		logger.WithError(err).Warn("Text extraction submit failed")
		return models.TextResult{
			Detected: false,
			Lines:    []models.TextLine{},
			Note:     fmt.Sprintf("text extraction submit failed: %v", err),
		}
	}

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
			return models.TextResult{
				Detected: false,
				Lines:    []models.TextLine{},
				Note:     fmt.Sprintf("text extraction cancelled: %v", err),
			}
		}

		parsed, err := c.pollRead(ctx, opURL)
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Warn("Text extraction poll failed")
			continue
		}

		switch classifyReadStatus(parsed.Status) {
		case pollSucceeded:
			return collectLines(parsed)
		case pollFailed:
			return models.TextResult{
				Detected: false,
				Lines:    []models.TextLine{},
				Note:     "text extraction failed at provider",
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"attempts": c.pollAttempts,
		"interval": c.pollInterval,
	}).Warn("Text extraction timed out")

	return models.TextResult{
		Detected: false,
		Lines:    []models.TextLine{},
		Note:     fmt.Sprintf("text extraction timed out after %d attempts", c.pollAttempts),
	}
}

// submitRead starts the async operation and returns the operation URL.
func (c *Client) submitRead(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+readPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("unexpected submit status %d", resp.StatusCode)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("provider returned no operation location")
	}
	return opURL, nil
}

// pollRead fetches the current state of an in-flight operation.
func (c *Client) pollRead(ctx context.Context, opURL string) (*readResultResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected poll status %d", resp.StatusCode)
	}

	var parsed readResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// collectLines flattens the page/line hierarchy into the capped,
// ordered line sequence.
func collectLines(parsed *readResultResponse) models.TextResult {
	lines := make([]models.TextLine, 0, maxTextLines)
	for _, page := range parsed.AnalyzeResult.ReadResults {
		for _, line := range page.Lines {
			if len(lines) >= maxTextLines {
				break
			}
			lines = append(lines, models.TextLine{
				Text:        line.Text,
				BoundingBox: line.BoundingBox,
			})
		}
	}
	return models.TextResult{
		Detected: len(lines) > 0,
		Lines:    lines,
	}
}
