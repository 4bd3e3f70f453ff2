// Package llm talks to the generative AI providers used for cover letters and
// template design: a local Ollama server and Google Gemini.
package llm

import (
	"context"

	"github.com/applytrack/applytrack/pkg/models"
)

// InlineImage is an image sent alongside a prompt, e.g. a screenshot of a
// document design to imitate.
type InlineImage struct {
	Data     []byte
	MIMEType string // Defaults to image/png
}

// Request is a single generation request.
type Request struct {
	Prompt string
	Image  *InlineImage // Optional

	// JSON asks the provider for a JSON document instead of free text.
	JSON bool

	// OnChunk, when set, switches to streaming: each partial text chunk is
	// delivered in order before Generate returns the complete text.
	OnChunk func(chunk string)
}

// Generator produces text from a prompt.
// Use this interface for dependency injection to enable mocking in tests.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)

	// Provider names the backend, for logs and error messages.
	Provider() models.AIProvider
}

// ModelLister lists the models a provider can generate with.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Client is a provider that can both generate and list models.
type Client interface {
	Generator
	ModelLister
}

const defaultImageMIMEType = "image/png"

func imageMIMEType(img *InlineImage) string {
	if img == nil || img.MIMEType == "" {
		return defaultImageMIMEType
	}
	return img.MIMEType
}
