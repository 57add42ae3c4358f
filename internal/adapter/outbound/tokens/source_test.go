package tokens_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/tokens"
	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) (*tokens.Source, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return tokens.NewSource(server.Client(), server.URL+"/", "", time.Minute, logger), &calls
}

func TestSource_Credentials(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    domain.Credentials
		wantErr string
	}{
		{
			name: "Success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/items/configuration", r.URL.Path)
				assert.Equal(t, tokens.DefaultUserAgent, r.Header.Get("User-Agent"))
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"data":{"key_dh":"api-123","key_ms":"search-456","other":1}}`)
			},
			want: domain.Credentials{APIToken: "api-123", SearchToken: "search-456"},
		},
		{
			name: "Failure - server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantErr: "HTTP 500",
		},
		{
			name: "Failure - missing search token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"data":{"key_dh":"api-123"}}`)
			},
			wantErr: "missing a token",
		},
		{
			name: "Failure - not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `<html>`)
			},
			wantErr: "failed to decode configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newTestSource(t, tt.handler)
			got, err := src.Credentials(ctx, true)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, usecase.ErrCredentialFetch)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource_CacheUsage(t *testing.T) {
	ctx := context.Background()
	src, calls := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"key_dh":"a","key_ms":"s"}}`)
	})

	_, err := src.Credentials(ctx, true)
	require.NoError(t, err)
	_, err = src.Credentials(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	_, err = src.Credentials(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	src.Invalidate()
	_, err = src.Credentials(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestSource_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := tokens.NewSource(nil, "http://127.0.0.1:1", "", time.Minute, logger)

	_, err := src.Credentials(context.Background(), true)
	assert.ErrorIs(t, err, usecase.ErrCredentialFetch)
}
