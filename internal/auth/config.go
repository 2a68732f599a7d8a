package auth

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

var (
	DefaultIssuer  = "https://keycloak-wailsalutem-suite.apps.inholland-minor.openshift.eu/realms/wailsalutem"
	DefaultJWKSURL = "https://keycloak-wailsalutem-suite.apps.inholland-minor.openshift.eu/realms/wailsalutem/protocol/openid-connect/certs"
)

// WithDefaults fills the Keycloak realm defaults for unset fields.
func (c Config) WithDefaults() Config {
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.JWKSURL == "" {
		c.JWKSURL = DefaultJWKSURL
	}
	return c
}
