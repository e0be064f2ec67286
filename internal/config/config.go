package config

import (
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Pricing holds the checkout constants. These are business configuration,
// not code: the rates ship with defaults but can be overridden per deploy.
type Pricing struct {
	TaxRate          decimal.Decimal // fraction of subtotal, e.g. 0.16
	FreeShippingOver decimal.Decimal // strict threshold: subtotal must exceed it
	ShippingFee      decimal.Decimal // flat fee below the threshold
}

// Mpesa holds Daraja API credentials and endpoints.
type Mpesa struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string // sandbox | production
	Timeout        time.Duration
}

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	AllowOrigins string
	Pricing      Pricing
	Mpesa        Mpesa
}

func Load() Config {
	cfg := Config{
		Port:         getenv("PORT", "8080"),
		DBDSN:        getenv("DB_DSN", "sokojumla.db"),
		LogFile:      getenv("LOG_FILE", "./sokojumla.log"),
		AllowOrigins: getenv("ALLOW_ORIGINS", "http://localhost:5173"),
		Pricing: Pricing{
			TaxRate:          getdec("TAX_RATE", "0.16"),
			FreeShippingOver: getdec("FREE_SHIPPING_OVER", "50"),
			ShippingFee:      getdec("SHIPPING_FEE", "5.99"),
		},
		Mpesa: Mpesa{
			ConsumerKey:    getenv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getenv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      getenv("MPESA_BUSINESS_SHORTCODE", "174379"),
			Passkey:        getenv("MPESA_PASSKEY", ""),
			CallbackURL:    getenv("MPESA_CALLBACK_URL", "http://localhost:8080/api/v1/mpesa/callback"),
			Environment:    getenv("MPESA_ENVIRONMENT", "sandbox"),
			Timeout:        getdur("MPESA_HTTP_TIMEOUT", 30*time.Second),
		},
	}

	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s TAX_RATE=%s FREE_SHIPPING_OVER=%s SHIPPING_FEE=%s MPESA_ENV=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile,
		cfg.Pricing.TaxRate, cfg.Pricing.FreeShippingOver, cfg.Pricing.ShippingFee,
		cfg.Mpesa.Environment)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdec(key, def string) decimal.Decimal {
	raw := getenv(key, def)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("[config] bad decimal for %s=%q, using %s", key, raw, def)
		d, _ = decimal.NewFromString(def)
	}
	return d
}

func getdur(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[config] bad duration for %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}
