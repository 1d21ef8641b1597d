package models

// Tenant is one configured business account ("empresa"). Tenants are loaded
// once at startup and never mutated afterwards.
type Tenant struct {
	ID                  string   `mapstructure:"-" json:"id"`
	Name                string   `mapstructure:"name" json:"name"`
	BridgeURL           string   `mapstructure:"bridge_url" json:"bridgeUrl"`
	Session             string   `mapstructure:"session" json:"session"`
	BridgeAPIKey        string   `mapstructure:"bridge_api_key" json:"-"`
	BotNumbers          []string `mapstructure:"numbers" json:"numbers"`
	Admins              []string `mapstructure:"admins" json:"admins"`
	Flow                string   `mapstructure:"flow" json:"flow"`
	MPAccessToken       string   `mapstructure:"mp_access_token" json:"-"`
	StatementDescriptor string   `mapstructure:"statement_descriptor" json:"statementDescriptor"`
	GeminiAPIKey        string   `mapstructure:"gemini_api_key" json:"-"`

	// Payment-link checkout, used by flows that hand out a hosted link
	// instead of issuing a PIX charge in-process.
	PaymentLinkBase     string `mapstructure:"payment_link_base" json:"paymentLinkBase"`
	PaymentInstructions string `mapstructure:"payment_instructions" json:"paymentInstructions"`
}
