package sources

import (
	"fmt"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/httpclient"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct {
	httpClient httpclient.Client
	s3Clients  S3ClientFactory
}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// FactoryOption configures the source handler factory
type FactoryOption func(*defaultSourceHandlerFactory)

// WithHTTPClient sets the client used by http sources
func WithHTTPClient(c httpclient.Client) FactoryOption {
	return func(f *defaultSourceHandlerFactory) {
		f.httpClient = c
	}
}

// WithS3ClientFactory sets how s3 sources obtain their client
func WithS3ClientFactory(fn S3ClientFactory) FactoryOption {
	return func(f *defaultSourceHandlerFactory) {
		f.s3Clients = fn
	}
}

// NewSourceHandlerFactory creates a new source handler factory
func NewSourceHandlerFactory(opts ...FactoryOption) SourceHandlerFactory {
	f := &defaultSourceHandlerFactory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateHandler creates a source handler for the given source type
func (f *defaultSourceHandlerFactory) CreateHandler(sourceType string) (SourceHandler, error) {
	switch sourceType {
	case config.SourceTypeFile:
		return NewFileSourceHandler(), nil
	case config.SourceTypeHTTP:
		return NewHTTPSourceHandler(f.httpClient), nil
	case config.SourceTypeS3:
		return NewS3SourceHandler(f.s3Clients), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
