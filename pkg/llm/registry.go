package llm

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"gemini":     "gemini-1.5-flash",
	"anthropic":  "claude-sonnet-4-20250514",
	"openai":     "gpt-4o-mini",
	"openrouter": "openrouter/auto",
	"ollama":     "llama3.2",
}

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

func init() {
	RegisterProvider("gemini", func(cfg ProviderConfig) (Provider, error) {
		return NewGeminiProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("openrouter", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// AvailableProviders returns the sorted list of registered providers.
func AvailableProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	slices.Sort(providers)
	return providers
}

// IsRegistered returns true if a provider is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// providerEnvKeys maps provider names to their API key environment variables,
// in detection priority order.
var providerEnvKeys = []struct {
	provider string
	env      []string
}{
	{"gemini", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	{"openrouter", []string{"OPENROUTER_API_KEY"}},
	{"anthropic", []string{"ANTHROPIC_API_KEY"}},
	{"openai", []string{"OPENAI_API_KEY"}},
}

// DetectProvider auto-detects the best provider based on available API keys.
// Priority: GEMINI_API_KEY/GOOGLE_API_KEY > OPENROUTER_API_KEY >
// ANTHROPIC_API_KEY > OPENAI_API_KEY > ollama (no key needed).
func DetectProvider() (provider string, apiKey string) {
	for _, p := range providerEnvKeys {
		if key := APIKey(p.provider); key != "" {
			return p.provider, key
		}
	}
	return "ollama", ""
}

// APIKey returns the first non-empty API key env var for the provider.
func APIKey(provider string) string {
	for _, p := range providerEnvKeys {
		if p.provider != provider {
			continue
		}
		for _, env := range p.env {
			if key := os.Getenv(env); key != "" {
				return key
			}
		}
	}
	return ""
}

// HasAPIKey checks if an API key environment variable is set for the given provider.
func HasAPIKey(provider string) bool {
	return APIKey(provider) != ""
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	return DefaultModels[provider]
}
