// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndValidateURLParam(t *testing.T) {
	t.Parallel()

	// Test with valid URLs through router
	routerTests := []struct {
		name       string
		paramName  string
		paramValue string
		wantValue  string
		wantErr    bool
		wantErrMsg string
	}{
		// Valid cases
		{
			name:       "valid plain string",
			paramName:  "name",
			paramValue: "ada",
			wantValue:  "ada",
		},
		{
			name:       "valid with dashes and dots",
			paramName:  "name",
			paramValue: "j.doe-42",
			wantValue:  "j.doe-42",
		},
		{
			name:       "space in middle",
			paramName:  "name",
			paramValue: "Ada%20Lovelace",
			wantValue:  "Ada Lovelace",
		},
		{
			name:       "surrounding spaces are trimmed",
			paramName:  "name",
			paramValue: "%20Ada%20",
			wantValue:  "Ada",
		},
		{
			name:       "non ascii name",
			paramName:  "name",
			paramValue: "Ren%C3%A9e",
			wantValue:  "Renée",
		},

		// URL-encoded cases that should decode properly
		{
			name:       "url-encoded slash",
			paramName:  "name",
			paramValue: "a%2Fb",
			wantValue:  "a/b",
		},
		{
			name:       "url-encoded plus",
			paramName:  "name",
			paramValue: "a%2Bb",
			wantValue:  "a+b",
		},
		// Note: Chi router already partially decodes URLs
		// %2525 becomes %25 which we then decode to %
		{
			name:       "double-encoded percent",
			paramName:  "name",
			paramValue: "a%2525b",
			wantValue:  "a%b",
		},

		// Empty and whitespace cases
		{
			name:       "empty string",
			paramName:  "name",
			paramValue: "",
			wantErr:    true,
			wantErrMsg: "name cannot be empty",
		},
		{
			name:       "url-encoded space only",
			paramName:  "name",
			paramValue: "%20%20",
			wantErr:    true,
			wantErrMsg: "name cannot be empty",
		},
		{
			name:       "url-encoded tab only",
			paramName:  "name",
			paramValue: "%09",
			wantErr:    true,
			wantErrMsg: "name cannot be empty",
		},
		{
			name:       "tab in middle",
			paramName:  "name",
			paramValue: "Ada%09Lovelace",
			wantErr:    true,
			wantErrMsg: "name cannot contain tabs or line breaks",
		},
		{
			name:       "newline in middle",
			paramName:  "name",
			paramValue: "Ada%0ALovelace",
			wantErr:    true,
			wantErrMsg: "name cannot contain tabs or line breaks",
		},
	}

	for _, tt := range routerTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Create a test router with chi
			router := chi.NewRouter()
			router.Get("/{"+tt.paramName+"}", func(_ http.ResponseWriter, r *http.Request) {
				value, err := GetAndValidateURLParam(r, tt.paramName)

				if tt.wantErr {
					require.Error(t, err)
					assert.Equal(t, tt.wantErrMsg, err.Error())
				} else {
					require.NoError(t, err)
					assert.Equal(t, tt.wantValue, value)
				}
			})

			// Create test request
			req, err := http.NewRequest("GET", "/"+tt.paramValue, nil)
			require.NoError(t, err)

			// Execute request
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
		})
	}

	// Test invalid URL encoding directly (chi router won't parse these)
	directTests := []struct {
		name       string
		paramName  string
		paramValue string
		wantErrMsg string
	}{
		{
			name:       "invalid url encoding - incomplete",
			paramName:  "name",
			paramValue: "test%2",
			wantErrMsg: "invalid URL encoding in name",
		},
		{
			name:       "invalid url encoding - invalid hex",
			paramName:  "name",
			paramValue: "test%ZZ",
			wantErrMsg: "invalid URL encoding in name",
		},
		{
			name:       "invalid url encoding - incomplete percent",
			paramName:  "name",
			paramValue: "test%",
			wantErrMsg: "invalid URL encoding in name",
		},
	}

	for _, tt := range directTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Create a mock request with chi context
			req := httptest.NewRequest("GET", "/test", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add(tt.paramName, tt.paramValue)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			// Call the function directly
			_, err := GetAndValidateURLParam(req, tt.paramName)
			require.Error(t, err)
			assert.Equal(t, tt.wantErrMsg, err.Error())
		})
	}
}
