package registry

import "github.com/menonsoftware/Konexion/pkg/api"

// defaultCatalog is the small built-in catalog served when no provider
// is reachable at preload time. It lists one well-known model per
// provider so the UI has something to offer; turns against these will
// still fail until the owning provider comes up.
var defaultCatalog = []api.ModelEntry{
	{
		ModelID:       "llama-3.3-70b-versatile",
		OwnedBy:       "Meta",
		ContextWindow: 131072,
		ClientType:    api.ClientTypeGroq,
	},
	{
		ModelID:       "llama-3.1-8b-instant",
		OwnedBy:       "Meta",
		ContextWindow: 131072,
		ClientType:    api.ClientTypeGroq,
	},
	{
		ModelID:       "llama3.2:latest",
		OwnedBy:       "ollama",
		ContextWindow: 4096,
		ClientType:    api.ClientTypeOllama,
	},
}
