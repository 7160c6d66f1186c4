package llm

import (
	"fmt"

	"github.com/jonathan/site-auditor/internal/config"
)

// Resolution is a fully resolved provider/model/credential triple.
type Resolution struct {
	Provider Provider
	Model    string
	APIKey   string
}

// Unconfigured reasons returned by the resolver.
const (
	ReasonMissingAPIKey       = "missing_api_key"
	ReasonUnsupportedProvider = "unsupported_provider"
)

// UnconfiguredError is the resolver's structured failure. It is a normal
// return value, not an exceptional condition: callers switch the pipeline
// into AI-disabled mode instead of aborting the scan.
type UnconfiguredError struct {
	Provider Provider
	Reason   string
}

func (e *UnconfiguredError) Error() string {
	return fmt.Sprintf("ai provider %s unconfigured: %s", e.Provider, e.Reason)
}

// Resolver resolves requested provider/model names against configured
// credentials and defaults. Construct once at startup and inject.
type Resolver struct {
	defaultProvider Provider
	credentials     map[Provider]string
	modelOverrides  map[Provider]string // environment-configured per-provider models
}

// NewResolver builds a resolver from explicit values.
func NewResolver(defaultProvider Provider, credentials, modelOverrides map[Provider]string) *Resolver {
	if credentials == nil {
		credentials = map[Provider]string{}
	}
	if modelOverrides == nil {
		modelOverrides = map[Provider]string{}
	}
	return &Resolver{
		defaultProvider: defaultProvider,
		credentials:     credentials,
		modelOverrides:  modelOverrides,
	}
}

// NewResolverFromConfig builds a resolver from the process configuration.
func NewResolverFromConfig(cfg *config.Config) *Resolver {
	creds := make(map[Provider]string)
	overrides := make(map[Provider]string)
	for _, p := range SupportedProviders {
		if key := cfg.APIKeyFor(string(p)); key != "" {
			creds[p] = key
		}
		if model := cfg.ModelFor(string(p)); model != "" {
			overrides[p] = model
		}
	}
	return NewResolver(Provider(cfg.DefaultAIProvider), creds, overrides)
}

// Resolve maps an optional requested provider/model to a concrete
// Resolution. Model precedence: explicit request > environment-configured
// default for the provider > hardcoded fallback constant. A missing
// credential yields an UnconfiguredError with ReasonMissingAPIKey.
func (r *Resolver) Resolve(requestedProvider, requestedModel string) (Resolution, error) {
	provider := r.defaultProvider
	if requestedProvider != "" {
		provider = Provider(requestedProvider)
	}
	if !Supported(string(provider)) {
		return Resolution{}, &UnconfiguredError{Provider: provider, Reason: ReasonUnsupportedProvider}
	}

	apiKey := r.credentials[provider]
	if apiKey == "" {
		return Resolution{}, &UnconfiguredError{Provider: provider, Reason: ReasonMissingAPIKey}
	}

	model := requestedModel
	if model == "" {
		model = r.modelOverrides[provider]
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	return Resolution{Provider: provider, Model: model, APIKey: apiKey}, nil
}
