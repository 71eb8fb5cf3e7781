package domain

// DialectXML is the only wire dialect this gateway speaks. Banks configured
// with another dialect are rejected before any wallet work happens.
const DialectXML = "xml"

// BankConfig is one operator/tenant credential set for the provider
// integration. Read-only to the gateway; resolved once per callback.
type BankConfig struct {
	ID              string `json:"bank_id"`
	PassKey         string `json:"-"` // shared secret, never logged
	DefaultCurrency string `json:"default_currency"`
	Dialect         string `json:"dialect"`
}

// Currency returns the bank's wallet currency, defaulting to USD.
func (b *BankConfig) Currency() string {
	if b.DefaultCurrency == "" {
		return "USD"
	}
	return b.DefaultCurrency
}

// UsesXML reports whether the bank speaks the XML dialect. An empty dialect
// means xml, matching historical bank configs.
func (b *BankConfig) UsesXML() bool {
	return b.Dialect == "" || b.Dialect == DialectXML
}
