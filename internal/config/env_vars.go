package config

import "os"

const (
	providerHostVar = "PRODA_ENDPOINT"
	clientIDVar     = "PRODA_CLIENT_ID"
	uriSchemeVar    = "URI_SCHEME"
	pbsEndpointVar  = "PBS_ENDPOINT"
	itemSearchVar   = "PBSSERVE_ENDPOINT"
	productNameVar  = "PRODUCT_NAME"
	prescriberVar   = "PRESCRIBER_NUMBER"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetProviderHost() string {
	return GetEnv(providerHostVar, "https://proda.humanservices.gov.au")
}

func (EnvVars) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

// GetURIScheme returns the private URI scheme the desktop shell registers
// for redirect callbacks (e.g. "x-sierra-romeo").
func (EnvVars) GetURIScheme() string {
	return GetEnv(uriSchemeVar, "x-sierra-romeo")
}

func (EnvVars) GetPBSEndpoint() string {
	return GetEnv(pbsEndpointVar, "https://healthclaiming.api.humanservices.gov.au/claiming/ext-vnd/pbs-authorities")
}

func (EnvVars) GetItemSearchEndpoint() string {
	return GetEnv(itemSearchVar, "https://api.sierraromeo.com.au")
}

func (EnvVars) GetProductName() string {
	return GetEnv(productNameVar, "SierraRomeo")
}

func (EnvVars) GetPrescriberNumber() string {
	return GetEnv(prescriberVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
