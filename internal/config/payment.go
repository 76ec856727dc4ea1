package config

import "strings"

// PaymentConfig selects and configures the payment gateway.  Provider
// "omise" talks to Omise with the given keys; "sandbox" confirms every
// intent and is meant for local runs only.
type PaymentConfig struct {
	Provider   string
	PublicKey  string
	SecretKey  string
	Currency   string // lower-case ISO code sent to the gateway
	SourceType string // Omise source type used for checkout charges
}

// LoadPaymentConfig reads PAYMENT_* variables.  When no secret key is
// present the provider silently falls back to sandbox outside prod.
func LoadPaymentConfig() PaymentConfig {
	p := PaymentConfig{
		Provider:   strings.ToLower(envStr("PAYMENT_PROVIDER", "omise")),
		PublicKey:  envStr("OMISE_PUBLIC_KEY", ""),
		SecretKey:  envStr("OMISE_SECRET_KEY", ""),
		Currency:   strings.ToLower(envStr("PAYMENT_CURRENCY", "thb")),
		SourceType: envStr("OMISE_SOURCE_TYPE", "promptpay"),
	}
	if p.Provider == "omise" && p.SecretKey == "" && envStr("APP_ENV", "dev") != "prod" {
		p.Provider = "sandbox"
	}
	return p
}
