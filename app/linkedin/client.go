package linkedin

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/follow-comb/app/retry"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type Client struct {
	httpClient *http.Client
	cfg        Config
	policy     retry.Policy
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/")
	cfg.APIHost = cmp.Or(cfg.APIHost, DefaultHost)
	cfg.Timeout = cmp.Or(cfg.Timeout, 30*time.Second)
	cfg.MaxAttempts = cmp.Or(cfg.MaxAttempts, 13)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger,
	}
	c.policy = retry.NewFixedPolicy(cfg.MaxAttempts, cfg.RetryDelay).
		WithRetryable(isRetryable).
		WithOnRetry(func(attempt int, err error) {
			c.logger.Warn("Directory API request failed, retrying",
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"delay", cfg.RetryDelay.String(),
				"error", err)
		})

	return c
}

// FetchFollowedCompanies returns every company the profile follows, walking
// all result pages. An empty or unresolvable identifier yields an empty result.
func (c *Client) FetchFollowedCompanies(ctx context.Context, identifier string) (Result, error) {
	var result Result

	handle := tracker.FollowerKey(identifier)
	if handle == "" {
		return result, nil
	}

	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		resp, err := c.fetchPage(ctx, handle, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			if page == 1 || errors.Is(err, errRateLimited) {
				return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			c.logger.Warn("Stopping pagination after failed page", "profile", handle, "page", page, "collected", len(result.Companies), "error", err)
			result.Partial = true
			break
		}

		if !resp.Success {
			if page == 1 {
				c.logger.Debug("Directory API reported no data", "profile", handle, "message", resp.Message)
				return Result{}, nil
			}
			c.logger.Warn("Directory API reported failure on later page", "profile", handle, "page", page, "message", resp.Message)
			result.Partial = true
			break
		}

		if len(resp.Data.Items) == 0 {
			break
		}

		for _, item := range resp.Data.Items {
			name := strings.TrimSpace(item.Name)
			link := strings.TrimSpace(item.LinkedinURL)
			if name == "" && link == "" {
				continue
			}
			result.Companies = append(result.Companies, tracker.Company{
				Name: cmp.Or(name, link),
				URL:  link,
			})
		}

		if resp.Data.TotalPages > 0 {
			totalPages = resp.Data.TotalPages
		}
	}

	c.logger.Debug("Fetched followed companies", "profile", handle, "companies", len(result.Companies), "partial", result.Partial)
	return result, nil
}

// FetchProfileName looks up the display name of a profile. It returns an
// empty string when the API knows no name for it.
func (c *Client) FetchProfileName(ctx context.Context, identifier string) (string, error) {
	handle := tracker.FollowerKey(identifier)
	if handle == "" {
		return "", nil
	}

	endpoint := c.cfg.BaseURL + profilePath + "?" + url.Values{"url": {tracker.ProfileURL(handle)}}.Encode()

	var resp profileResponse
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	})
	if err != nil {
		if errors.Is(err, errRateLimited) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("failed to fetch profile name: %w", err)
	}

	for _, candidate := range []*personName{&resp.personName, resp.Data, resp.Profile, resp.Result} {
		if candidate == nil {
			continue
		}
		if name := strings.TrimSpace(strings.TrimSpace(candidate.FirstName) + " " + strings.TrimSpace(candidate.LastName)); name != "" {
			return name, nil
		}
	}

	return "", nil
}

func (c *Client) fetchPage(ctx context.Context, handle string, page int) (*interestsResponse, error) {
	body, err := json.Marshal(interestsRequest{Username: handle, Page: page})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp interestsResponse
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		resp = interestsResponse{}
		return c.do(ctx, http.MethodPost, c.cfg.BaseURL+interestsPath, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Rate limiting, server errors, transport failures and malformed bodies are
// worth another attempt; other client errors are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}
