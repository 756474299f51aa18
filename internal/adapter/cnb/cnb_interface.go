package cnb

import "context"

// Fetcher returns the raw response body for url. Any network or IO problem
// is reported as an *entity.TransferError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
