package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/logging"
	"github.com/applytrack/applytrack/pkg/models"
)

// OllamaConfig holds configuration for creating an Ollama client.
type OllamaConfig struct {
	URL         string // Server root, e.g. "http://localhost:11434"
	Model       string // e.g. "llama3.2"
	Temperature float64
	HTTPClient  *http.Client // Optional
}

// OllamaClient talks to a local Ollama server. Generation uses its
// OpenAI-compatible /v1 API; model listing uses the native /api/tags.
type OllamaClient struct {
	client  *openai.Client
	rest    *resty.Client
	baseURL string
	model   string
	temp    float64
	logger  *zap.Logger
}

var _ Client = (*OllamaClient)(nil)

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg *OllamaConfig, logger *zap.Logger) (*OllamaClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ollama url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	httpClient := withRequestIDTransport(cfg.HTTPClient)

	// Ollama ignores the key, but go-openai always sends one.
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL + "/v1"
	clientConfig.HTTPClient = httpClient

	logger = logger.Named("llm.ollama")
	logger.Debug("Ollama client configured",
		zap.String("url", logging.SanitizeURL(baseURL)),
		zap.String("model", cfg.Model))

	return &OllamaClient{
		client:  openai.NewClientWithConfig(clientConfig),
		rest:    resty.NewWithClient(httpClient),
		baseURL: baseURL,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		logger:  logger,
	}, nil
}

// Provider implements Generator.
func (c *OllamaClient) Provider() models.AIProvider {
	return models.AIProviderOllama
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

func (c *OllamaClient) chatRequest(req *Request) openai.ChatCompletionRequest {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Image == nil {
		msg.Content = req.Prompt
	} else {
		dataURI := "data:" + imageMIMEType(req.Image) + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: float32(c.temp),
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

// Generate implements Generator. Streams when req.OnChunk is set.
func (c *OllamaClient) Generate(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}

	ctx, requestID := ensureRequestID(ctx)
	logger := c.logger.With(zap.String("request_id", requestID.String()), zap.String("model", c.model))
	logger.Debug("Ollama request",
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
		logger.Error("Ollama request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return "", ClassifyError(models.AIProviderOllama, c.model, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", emptyResponseError(models.AIProviderOllama, c.model)
	}

	logger.Info("Ollama request completed",
		zap.Int("response_len", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func (c *OllamaClient) complete(ctx context.Context, req *Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OllamaClient) stream(ctx context.Context, req *Request) (string, error) {
	chatReq := c.chatRequest(req)
	chatReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			sb.WriteString(choice.Delta.Content)
			req.OnChunk(choice.Delta.Content)
		}
	}
}

// ListModels implements ModelLister using Ollama's native tag listing.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, _ = ensureRequestID(ctx)

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.baseURL + "/api/tags")
	if err != nil {
		return nil, ClassifyError(models.AIProviderOllama, "", fmt.Errorf("list models: %w", err))
	}
	if resp.IsError() {
		e := NewError(models.AIProviderOllama, ErrorTypeEndpoint, "list models failed", nil)
		e.StatusCode = resp.StatusCode()
		return nil, e
	}

	body := resp.String()
	if !gjson.Valid(body) {
		return nil, NewError(models.AIProviderOllama, ErrorTypeEndpoint, "invalid model listing", nil)
	}

	names := []string{}
	for _, name := range gjson.Get(body, "models.#.name").Array() {
		if n := name.String(); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}
