package config

type Config interface {
	ProviderConfig
	ServiceConfig
	ClientConfig
}

// ProviderConfig describes the PRODA identity provider.
type ProviderConfig interface {
	GetProviderHost() string
	GetClientID() string
	GetURIScheme() string
}

// ServiceConfig describes the Services Australia assessment and item
// search endpoints.
type ServiceConfig interface {
	GetPBSEndpoint() string
	GetItemSearchEndpoint() string
}

// ClientConfig describes this installation of the client.
type ClientConfig interface {
	GetProductName() string
	GetPrescriberNumber() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
