package llm

import (
	"context"

	"github.com/applytrack/applytrack/pkg/models"
)

// MockClient is a configurable mock for testing code that generates text.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns Response and nil error.
	GenerateFunc func(ctx context.Context, req *Request) (string, error)

	// ListModelsFunc is called when ListModels is invoked.
	// If nil, returns nil slice and nil error.
	ListModelsFunc func(ctx context.Context) ([]string, error)

	// Response is returned by Generate when GenerateFunc is nil.
	Response string

	// ProviderName is returned by Provider. Defaults to Ollama.
	ProviderName models.AIProvider

	// Call tracking for verification
	GenerateCalls   int
	ListModelsCalls int
	LastRequest     *Request
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Response:     "mock response",
		ProviderName: models.AIProviderOllama,
	}
}

// Generate implements Generator. When GenerateFunc is nil and the request
// streams, Response is delivered as a single chunk.
func (m *MockClient) Generate(ctx context.Context, req *Request) (string, error) {
	m.GenerateCalls++
	m.LastRequest = req
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if req != nil && req.OnChunk != nil {
		req.OnChunk(m.Response)
	}
	return m.Response, nil
}

// Provider implements Generator.
func (m *MockClient) Provider() models.AIProvider {
	return m.ProviderName
}

// ListModels implements ModelLister.
func (m *MockClient) ListModels(ctx context.Context) ([]string, error) {
	m.ListModelsCalls++
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return nil, nil
}

// MockClientFactory returns a fixed client, or Err when set.
type MockClientFactory struct {
	Client Client
	Err    error

	ForConfigCalls int
	LastConfig     *models.AIProviderConfig
}

var _ ClientFactory = (*MockClientFactory)(nil)

// ForConfig implements ClientFactory.
func (f *MockClientFactory) ForConfig(_ context.Context, cfg *models.AIProviderConfig) (Client, error) {
	f.ForConfigCalls++
	f.LastConfig = cfg
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}
