package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time is used for duration-typed settings
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. String fields carry identifiers, URLs and
// secrets; durations carry the windows that govern the booking flow.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // secret used to verify identity-provider access tokens

	CatalogBaseURL string // base URL of the external movie catalog API
	CatalogAPIKey  string // bearer key for the catalog API

	CheckoutAPIKey        string // Stripe secret key
	CheckoutWebhookSecret string // shared secret for webhook signature checks
	IdentityWebhookSecret string // shared secret for identity sync events

	ClientOrigin string // browser origin used for checkout redirect URLs

	BookingTimeout time.Duration // window before an unpaid booking is reaped
	SessionExpiry  time.Duration // lifetime of a hosted checkout session

	SMTPHost   string // SMTP relay host for notification mail
	SMTPPort   string // SMTP relay port
	SMTPUser   string // SMTP username (empty disables mail delivery)
	SMTPPass   string // SMTP password
	SenderMail string // From address on outgoing mail
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Provider secrets
// for mail are optional so the service can run without a relay.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		CatalogBaseURL: getenv("CATALOG_BASE_URL", "https://api.themoviedb.org"),
		CatalogAPIKey:  must("CATALOG_API_KEY"),

		CheckoutAPIKey:        must("CHECKOUT_API_KEY"),
		CheckoutWebhookSecret: must("CHECKOUT_WEBHOOK_SECRET"),
		IdentityWebhookSecret: must("IDENTITY_WEBHOOK_SECRET"),

		ClientOrigin: getenv("CLIENT_ORIGIN", "http://localhost:5173"),

		BookingTimeout: envDur("BOOKING_TIMEOUT", 10*time.Minute),
		SessionExpiry:  envDur("SESSION_EXPIRY", 30*time.Minute),

		SMTPHost:   getenv("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:   getenv("SMTP_PORT", "587"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		SenderMail: os.Getenv("SENDER_EMAIL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
