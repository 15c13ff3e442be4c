// internal/interview/report/client.go

// Package report talks to the downstream assignment-report service.
// The engine never renders reports itself; it dispatches ids and
// proxies downloads.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"admissions-engine/internal/common/config"
	apperrors "admissions-engine/internal/common/errors"
	commonhttp "admissions-engine/internal/common/http"
	"admissions-engine/internal/common/logger"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *commonhttp.Client
	maxRetries int
	logger     logger.Logger
}

func NewClient(cfg config.ReportConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		maxRetries: cfg.MaxRetries,
		logger:     log.WithFields(map[string]interface{}{"component": "report"}),
	}
}

type dispatchPayload struct {
	ApplicantIDs  []string `json:"applicantIds"`
	InterviewerID string   `json:"interviewerId"`
	Year          int      `json:"year"`
}

// DispatchAssignment asks the report service to generate the
// assignment report for the given batch. Transient failures get one
// more attempt before the error is returned to the caller, who treats
// it as advisory.
func (c *Client) DispatchAssignment(ctx context.Context, applicantIDs []string, interviewerID string, year int) error {
	body, err := json.Marshal(dispatchPayload{
		ApplicantIDs:  applicantIDs,
		InterviewerID: interviewerID,
		Year:          year,
	})
	if err != nil {
		return apperrors.NewDownstreamError("report", err)
	}

	endpoint := c.baseURL + "/reports/assignment"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return apperrors.NewDownstreamError("report", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return apperrors.NewDownstreamError("report", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("report service returned %d", resp.StatusCode)
		if !commonhttp.IsRetryableStatus(resp.StatusCode) {
			break
		}
	}
	return apperrors.NewDownstreamError("report", lastErr)
}

// FetchAssignmentReport proxies a report download for the API layer.
// The caller owns the returned body.
func (c *Client) FetchAssignmentReport(ctx context.Context, applicantIDs []string, interviewerID string, year int) (io.ReadCloser, string, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(applicantIDs, ","))
	q.Set("interviewerId", interviewerID)
	q.Set("year", strconv.Itoa(year))

	endpoint := c.baseURL + "/reports/assignment?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", apperrors.NewDownstreamError("report", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.NewDownstreamError("report", err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, "", apperrors.NewDownstreamError("report",
			fmt.Errorf("report service returned %d", resp.StatusCode))
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
