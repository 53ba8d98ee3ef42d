package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
)

func TestListOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opt      service.Option
		expected service.ListOptions
		wantErr  string
	}{
		{
			name:     "search",
			opt:      service.WithSearch("ada"),
			expected: service.ListOptions{Search: "ada"},
		},
		{
			name:    "empty search",
			opt:     service.WithSearch(""),
			wantErr: "invalid search",
		},
		{
			name:     "include stale",
			opt:      service.WithIncludeStale(true),
			expected: service.ListOptions{IncludeStale: true},
		},
		{
			name:     "limit",
			opt:      service.WithLimit(25),
			expected: service.ListOptions{Limit: 25},
		},
		{
			name:    "negative limit",
			opt:     service.WithLimit(-1),
			wantErr: "invalid limit",
		},
		{
			name:    "limit above maximum",
			opt:     service.WithLimit(service.MaxLimit + 1),
			wantErr: "exceeds maximum",
		},
		{
			name:     "cursor",
			opt:      service.WithCursor("MTphZGE="),
			expected: service.ListOptions{Cursor: "MTphZGE="},
		},
		{
			name:    "empty cursor",
			opt:     service.WithCursor(""),
			wantErr: "invalid cursor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts service.ListOptions
			err := tt.opt(&opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, opts)
		})
	}
}
