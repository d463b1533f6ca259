package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is loaded once at startup from the environment (and .env when present).
type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	Production     bool     `env:"PRODUCTION" envDefault:"false"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	ServiceToken   string   `env:"SERVICE_TOKEN,required,notEmpty"`
	JWTSecret      string   `env:"JWT_SECRET"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	HPMax            int           `env:"HP_MAX" envDefault:"100"`
	HPRegenPerHour   int           `env:"HP_REGEN_PER_HOUR" envDefault:"5"`
	HPRegenInterval  time.Duration `env:"HP_REGEN_INTERVAL" envDefault:"15m"`
	HPDecayPerDay    int           `env:"HP_DECAY_PER_DAY" envDefault:"2"`
	HPDecayAfter     time.Duration `env:"HP_DECAY_AFTER" envDefault:"168h"`
	HPFloor          int           `env:"HP_FLOOR" envDefault:"20"`
	SessionSweep     time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	LevelUpBonus     int64         `env:"LEVEL_UP_TOKEN_BONUS" envDefault:"10"`
	StarterTokens    int64         `env:"STARTER_TOKENS" envDefault:"100"`
	QuizPassPercent  int           `env:"QUIZ_PASS_PERCENT" envDefault:"70"`
	RefundCutoff     time.Duration `env:"SESSION_REFUND_CUTOFF" envDefault:"2h"`
	CheckoutPoll     time.Duration `env:"CHECKOUT_POLL_INTERVAL" envDefault:"30s"`
	PaymentsURL      string        `env:"PAYMENTS_API_URL" envDefault:"https://api.stripe.com/v1"`
	PaymentsKey      string        `env:"PAYMENTS_API_KEY"`
	PaymentsWebhook  string        `env:"PAYMENTS_WEBHOOK_SECRET"`
	CheckoutSuccess  string        `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:3000/store?paid=1"`
	CheckoutCancel   string        `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:3000/store"`
	PlacesURL        string        `env:"PLACES_API_URL" envDefault:"https://maps.googleapis.com/maps/api/place/textsearch/json"`
	PlacesKey        string        `env:"PLACES_API_KEY"`
	PlacesRatePerSec float64       `env:"PLACES_RATE_PER_SEC" envDefault:"5"`
	PlacesCacheTTL   time.Duration `env:"PLACES_CACHE_TTL" envDefault:"10m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	NatsURL       string `env:"NATS_URL"`

	SendgridKey     string `env:"SENDGRID_API_KEY"`
	EmailSender     string `env:"EMAIL_SENDER" envDefault:"noreply@courtside.app"`
	EmailSenderName string `env:"EMAIL_SENDER_NAME" envDefault:"Courtside"`

	MediaAccountID string `env:"MEDIA_ACCOUNT_ID"`
	MediaKeyID     string `env:"MEDIA_ACCESS_KEY_ID"`
	MediaSecret    string `env:"MEDIA_ACCESS_KEY_SECRET"`
	MediaBucket    string `env:"MEDIA_BUCKET"`
	MediaCDNURL    string `env:"MEDIA_CDN_URL"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return &c, nil
}

// MediaEnabled reports whether S3 media uploads are configured.
func (c *Config) MediaEnabled() bool {
	return c.MediaBucket != "" && c.MediaKeyID != "" && c.MediaSecret != ""
}
