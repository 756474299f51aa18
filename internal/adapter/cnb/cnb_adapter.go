package cnb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cnb-rates/internal/entity"

	"github.com/sirupsen/logrus"
)

type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger,
	}
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.logger.WithField("url", url).Info("Fetching CNB table")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Errorf("Failed to create request: %v", err)
		return nil, &entity.TransferError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", "cnb-rates/1.0")
	req.Header.Set("Accept", "text/plain,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("Failed to fetch CNB table: %v", err)
		return nil, &entity.TransferError{URL: url, Err: fmt.Errorf("fetch error: %w", err)}
	}
	defer resp.Body.Close()

	c.logger.Debugf("Response status: %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &entity.TransferError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Errorf("Failed to read response body: %v", err)
		return nil, &entity.TransferError{URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}
	if len(body) == 0 {
		c.logger.Error("Empty response body from CNB")
		return nil, &entity.TransferError{URL: url, Err: errors.New("empty response body")}
	}

	c.logger.Debugf("Response body length: %d bytes", len(body))
	c.logger.Debugf("First 200 chars: %s", string(body)[:min(200, len(body))])

	return body, nil
}
