package config

type Config struct {
	Environment Environment
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Auth     Auth     `envPrefix:"AUTH_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Platform Platform `envPrefix:"PLATFORM_"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Platform struct {
	// Commission retained by the platform on every sale, in percent.
	CommissionPercent float64 `env:"COMMISSION_PERCENT" envDefault:"15"`
}

type Auth struct {
	// Shared HMAC secret of the identity provider's access tokens.
	TokenSecret string `env:"TOKEN_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
