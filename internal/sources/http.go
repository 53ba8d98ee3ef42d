package sources

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/httpclient"
)

// httpFetcher downloads snapshots over http(s)
type httpFetcher struct {
	client httpclient.Client
}

// NewHTTPSourceHandler creates a handler for http sources. When client is nil a
// client is built per fetch from the source timeout and size limit.
func NewHTTPSourceHandler(client httpclient.Client) SourceHandler {
	return &snapshotHandler{fetcher: &httpFetcher{client: client}}
}

func (*httpFetcher) validate(src *config.SourceConfig) error {
	if src.HTTP == nil {
		return fmt.Errorf("http configuration is required")
	}
	if src.HTTP.URL == "" {
		return fmt.Errorf("http url cannot be empty")
	}
	if _, err := url.Parse(src.HTTP.URL); err != nil {
		return fmt.Errorf("invalid http url: %w", err)
	}
	return nil
}

func (f *httpFetcher) fetch(ctx context.Context, src *config.SourceConfig) ([]byte, string, error) {
	client := f.client
	if client == nil {
		var timeout time.Duration
		if src.HTTP.Timeout != "" {
			d, err := time.ParseDuration(src.HTTP.Timeout)
			if err != nil {
				return nil, "", fmt.Errorf("invalid http timeout: %w", err)
			}
			timeout = d
		}
		client = httpclient.NewDefaultClient(timeout, httpclient.WithMaxResponseSize(src.GetMaxSize()))
	}

	data, err := client.Get(ctx, src.HTTP.URL)
	if err != nil {
		return nil, "", err
	}

	name := src.HTTP.URL
	if u, err := url.Parse(src.HTTP.URL); err == nil {
		name = path.Base(u.Path)
	}
	return data, name, nil
}
