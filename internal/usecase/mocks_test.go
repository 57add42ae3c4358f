package usecase_test

import (
	"context"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

// MockCredentialSource is a mock implementation of the CredentialSource interface.
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) Credentials(ctx context.Context, useCache bool) (domain.Credentials, error) {
	args := m.Called(ctx, useCache)
	return args.Get(0).(domain.Credentials), args.Error(1)
}

// MockClientFactory is a mock implementation of the ClientFactory interface.
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds domain.Credentials, transport http.RoundTripper) (usecase.FFBBClient, error) {
	args := m.Called(creds, transport)
	// Handle potential nil client
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(usecase.FFBBClient), args.Error(1)
}

// MockTransportFactory is a mock implementation of the TransportFactory interface.
type MockTransportFactory struct {
	mock.Mock
}

func (m *MockTransportFactory) NewTransport(ttl time.Duration) (http.RoundTripper, error) {
	args := m.Called(ttl)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(http.RoundTripper), args.Error(1)
}

// MockFFBBClient is a mock implementation of the FFBBClient interface.
// Distinct instances double as distinct client handles.
type MockFFBBClient struct {
	mock.Mock
	name string
}

func newMockClient(name string) *MockFFBBClient {
	return &MockFFBBClient{name: name}
}

func (m *MockFFBBClient) Lives(ctx context.Context) ([]map[string]any, error) {
	args := m.Called(ctx)
	return listArg(args, 0), args.Error(1)
}

func (m *MockFFBBClient) Saisons(ctx context.Context, activeOnly bool) ([]map[string]any, error) {
	args := m.Called(ctx, activeOnly)
	return listArg(args, 0), args.Error(1)
}

func (m *MockFFBBClient) Competition(ctx context.Context, id int64) (map[string]any, error) {
	args := m.Called(ctx, id)
	return objectArg(args, 0), args.Error(1)
}

func (m *MockFFBBClient) Poule(ctx context.Context, id int64) (map[string]any, error) {
	args := m.Called(ctx, id)
	return objectArg(args, 0), args.Error(1)
}

func (m *MockFFBBClient) Organisme(ctx context.Context, id int64) (map[string]any, error) {
	args := m.Called(ctx, id)
	return objectArg(args, 0), args.Error(1)
}

func (m *MockFFBBClient) Search(ctx context.Context, index domain.SearchIndex, query string) (*domain.SearchResult, error) {
	args := m.Called(ctx, index, query)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*domain.SearchResult), args.Error(1)
}

func (m *MockFFBBClient) MultiSearch(ctx context.Context, query string) ([]domain.SearchResult, error) {
	args := m.Called(ctx, query)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.SearchResult), args.Error(1)
}

func listArg(args mock.Arguments, i int) []map[string]any {
	if v := args.Get(i); v != nil {
		return v.([]map[string]any)
	}
	return nil
}

func objectArg(args mock.Arguments, i int) map[string]any {
	if v := args.Get(i); v != nil {
		return v.(map[string]any)
	}
	return nil
}

// StaticProvider hands out a fixed client, or a fixed error.
type StaticProvider struct {
	Client usecase.FFBBClient
	Err    error
}

func (p *StaticProvider) Acquire(ctx context.Context) (usecase.FFBBClient, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Client, nil
}
