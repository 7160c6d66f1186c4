// Package llm provides the AI provider resolver and client abstractions for
// text, JSON, and vision generation.
package llm

// Provider represents an LLM provider.
type Provider string

// The supported provider set. Request validation rejects anything outside
// this closed enum before it reaches the resolver.
const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// SupportedProviders lists every provider the service can resolve.
var SupportedProviders = []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic}

// Supported reports whether name is a member of the supported provider set.
func Supported(name string) bool {
	for _, p := range SupportedProviders {
		if string(p) == name {
			return true
		}
	}
	return false
}

// defaultModels are the hardcoded fallback models per provider, used when
// neither the request nor the environment names one. Model names are not
// validated against the provider's catalog; any non-empty string is accepted.
var defaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-sonnet-latest",
}

// DefaultModel returns the hardcoded fallback model for a provider.
func DefaultModel(p Provider) string {
	return defaultModels[p]
}
