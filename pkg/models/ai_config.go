package models

// AIProvider names the generative AI backend used for letter and template generation.
type AIProvider string

const (
	AIProviderOllama AIProvider = "Ollama"
	AIProviderGemini AIProvider = "Gemini"
)

// Default AI settings written on first read of an empty store.
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultTemperature = 0.7
)

// AIProviderConfig is the singleton AI settings row (decrypted form).
type AIProviderConfig struct {
	ID                 int64      `json:"id"`
	SelectedProvider   AIProvider `json:"selected_provider"`
	OllamaURL          string     `json:"ollama_url"`
	DefaultOllamaModel string     `json:"default_ollama_model"`
	GeminiAPIKey       string     `json:"gemini_api_key,omitempty"` // Decrypted
	GeminiModel        string     `json:"gemini_model"`
	Temperature        float64    `json:"temperature"`
}

// DefaultAIProviderConfig returns the settings used when none are stored.
func DefaultAIProviderConfig() *AIProviderConfig {
	return &AIProviderConfig{
		SelectedProvider:   AIProviderOllama,
		OllamaURL:          DefaultOllamaURL,
		DefaultOllamaModel: DefaultOllamaModel,
		GeminiModel:        DefaultGeminiModel,
		Temperature:        DefaultTemperature,
	}
}

// MaskedAPIKey returns masked version: "AIza...wxyz".
func MaskedAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
