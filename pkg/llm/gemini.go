package llm

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/applytrack/applytrack/pkg/logging"
	"github.com/applytrack/applytrack/pkg/models"
)

// geminiMaxOutputTokens leaves room for complete HTML/CSS template designs.
const geminiMaxOutputTokens int32 = 4096

// GeminiConfig holds configuration for creating a Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string // e.g. "gemini-1.5-flash"
	Temperature float64
	BaseURL     string       // Optional endpoint override
	HTTPClient  *http.Client // Optional
}

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	client *genai.Client // nil when no API key is configured
	model  string
	temp   float64
	logger *zap.Logger
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient creates a new Gemini client. A missing API key is not an
// error here; every call then fails with ErrorTypeAuth without touching the network.
func NewGeminiClient(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	model := cfg.Model
	if model == "" {
		model = models.DefaultGeminiModel
	}

	c := &GeminiClient{
		model:  model,
		temp:   cfg.Temperature,
		logger: logger.Named("llm.gemini"),
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: withRequestIDTransport(cfg.HTTPClient),
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

// Provider implements Generator.
func (c *GeminiClient) Provider() models.AIProvider {
	return models.AIProviderGemini
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) missingKey() *Error {
	e := NewError(models.AIProviderGemini, ErrorTypeAuth, "no Gemini API key configured", nil)
	e.Model = c.model
	return e
}

func (c *GeminiClient) contents(req *Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, imageMIMEType(req.Image)))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (c *GeminiClient) generateConfig(req *Request) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.temp)),
		MaxOutputTokens: geminiMaxOutputTokens,
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}
	return genConfig
}

// Generate implements Generator. Streams when req.OnChunk is set.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	if c.client == nil {
		return "", c.missingKey()
	}

	ctx, requestID := ensureRequestID(ctx)
	logger := c.logger.With(zap.String("request_id", requestID.String()), zap.String("model", c.model))
	logger.Debug("Gemini request",
		zap.Int("prompt_len", len(req.Prompt)),
		zap.String("prompt_excerpt", logging.TruncateString(req.Prompt, logging.MaxPromptLogLength)),
		zap.Bool("image", req.Image != nil),
		zap.Bool("stream", req.OnChunk != nil))

	start := time.Now()

	var (
		text string
		err  error
	)
	if req.OnChunk != nil {
		text, err = c.stream(ctx, req)
	} else {
		text, err = c.complete(ctx, req)
	}
	if err != nil {
		logger.Error("Gemini request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return "", ClassifyError(models.AIProviderGemini, c.model, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", emptyResponseError(models.AIProviderGemini, c.model)
	}

	logger.Info("Gemini request completed",
		zap.Int("response_len", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func (c *GeminiClient) complete(ctx context.Context, req *Request) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, c.contents(req), c.generateConfig(req))
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func (c *GeminiClient) stream(ctx context.Context, req *Request) (string, error) {
	var sb strings.Builder
	for result, err := range c.client.Models.GenerateContentStream(ctx, c.model, c.contents(req), c.generateConfig(req)) {
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		chunk := result.Text()
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		req.OnChunk(chunk)
	}
	return sb.String(), nil
}

// ListModels implements ModelLister. Only models that support
// generateContent are returned, without the "models/" prefix.
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	if c.client == nil {
		return nil, c.missingKey()
	}
	ctx, _ = ensureRequestID(ctx)

	names := []string{}
	for model, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, ClassifyError(models.AIProviderGemini, "", fmt.Errorf("list models: %w", err))
		}
		if !slices.Contains(model.SupportedActions, "generateContent") {
			continue
		}
		names = append(names, strings.TrimPrefix(model.Name, "models/"))
	}
	return names, nil
}
