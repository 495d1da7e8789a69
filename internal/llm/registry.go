package llm

import (
	"errors"
	"fmt"
)

// ModelInfo describe un modelo para el selector de la UI.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProviderInfo describe un proveedor y su catálogo de modelos.
type ProviderInfo struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Models []ModelInfo `json:"models"`
}

// ErrUnknownProvider se devuelve al resolver un proveedor no registrado.
var ErrUnknownProvider = errors.New("unknown provider")

// Credentials agrupa las API keys por proveedor.
type Credentials struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	XAIAPIKey       string
}

// Catalog es el catálogo estático de proveedores/modelos. La validez del
// model id es solo informativa: un id desconocido se pasa tal cual al API
// upstream y su propio error sale de forma natural.
func Catalog() []ProviderInfo {
	return []ProviderInfo{
		{
			ID:   "google",
			Name: "Google",
			Models: []ModelInfo{
				{ID: "gemini-2.5-flash-lite-preview-06-17", Name: "Gemini 2.5 Flash Lite Preview", Description: "Fastest responses"},
				{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Description: "Fast responses"},
				{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Description: "Advanced reasoning"},
			},
		},
		{
			ID:   "xai",
			Name: "xAI",
			Models: []ModelInfo{
				{ID: "grok-3-mini-latest", Name: "Grok 3 Mini Latest", Description: "Cheap and fast"},
				{ID: "grok-beta", Name: "Grok Beta", Description: "Conversational AI"},
			},
		},
		{
			ID:   "openai",
			Name: "OpenAI",
			Models: []ModelInfo{
				{ID: "gpt-4o", Name: "GPT-4o", Description: "Most capable model"},
				{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Fast and efficient"},
				{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "Previous generation flagship"},
			},
		},
		{
			ID:   "anthropic",
			Name: "Anthropic",
			Models: []ModelInfo{
				{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Description: "Most intelligent model"},
				{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Description: "Fast and lightweight"},
				{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Description: "Most powerful model"},
			},
		},
	}
}

type handleFactory func(modelID string) ModelHandle

// Registry resuelve un (proveedor, modelo) a un ModelHandle invocable.
// Agregar un proveedor es registrar una entrada nueva, no editar despachos.
type Registry struct {
	catalog   []ProviderInfo
	factories map[string]handleFactory
}

// NewRegistry arma el registro con un factory por proveedor soportado.
func NewRegistry(creds Credentials) *Registry {
	return &Registry{
		catalog: Catalog(),
		factories: map[string]handleFactory{
			"openai": func(modelID string) ModelHandle {
				return NewOpenAIHandle(creds.OpenAIAPIKey, "", modelID)
			},
			"xai": func(modelID string) ModelHandle {
				return NewOpenAIHandle(creds.XAIAPIKey, xaiAPIURL, modelID)
			},
			"google": func(modelID string) ModelHandle {
				return NewGoogleHandle(creds.GoogleAPIKey, modelID)
			},
			"anthropic": func(modelID string) ModelHandle {
				return NewAnthropicHandle(creds.AnthropicAPIKey, modelID)
			},
		},
	}
}

// Resolve devuelve el handle para el par proveedor/modelo.
func (r *Registry) Resolve(providerID, modelID string) (ModelHandle, error) {
	factory, ok := r.factories[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	return factory(modelID), nil
}

// Providers devuelve el catálogo completo para la UI.
func (r *Registry) Providers() []ProviderInfo {
	return r.catalog
}

// ProviderName devuelve el nombre visible de un proveedor, o el id si no
// está en el catálogo.
func ProviderName(providerID string) string {
	for _, p := range Catalog() {
		if p.ID == providerID {
			return p.Name
		}
	}
	return providerID
}

// ModelName devuelve el nombre visible de un modelo, o el id si no está en
// el catálogo.
func ModelName(providerID, modelID string) string {
	for _, p := range Catalog() {
		if p.ID != providerID {
			continue
		}
		for _, m := range p.Models {
			if m.ID == modelID {
				return m.Name
			}
		}
	}
	return modelID
}
