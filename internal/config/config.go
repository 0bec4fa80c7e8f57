package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

//go:embed views.yaml
var defaultViews []byte

type Config struct {
	Port            string `validate:"required,numeric"`
	UpstreamAPIURL  string `validate:"required,url"`
	AuthUpstreamURL string `validate:"required,url"`
	JWTSecret       string `validate:"required"`

	RedisURL       string
	RabbitURL      string
	RabbitExchange string `validate:"required"`

	// Rate Limiting
	RLEnabled bool
	RLLimit   int           `validate:"gt=0"`
	RLWindow  time.Duration `validate:"gt=0"`

	CORSAllowedOrigins []string

	SessionTTL          time.Duration `validate:"gte=1s"`
	SessionsPerUser     int           `validate:"gt=0"`
	GatewayReadTimeout  time.Duration `validate:"gt=0"`
	GatewayWriteTimeout time.Duration `validate:"gt=0"`

	OTelEnabled  bool
	OTelEndpoint string

	LogLevel  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat string `validate:"oneof=console json"`

	Views []dashboard.ViewConfig `validate:"required,min=1,dive"`
}

type viewsFile struct {
	Views []dashboard.ViewConfig `yaml:"views"`
}

var validate = validator.New()

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Port = getEnv("HTTP_PORT", "8080")
	cfg.UpstreamAPIURL = getEnv("UPSTREAM_API_URL", "http://127.0.0.1:5000/api")
	cfg.AuthUpstreamURL = getEnv("AUTH_UPSTREAM_URL", "http://127.0.0.1:5000")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "eventhive.audit")

	// Rate Limiting Defaults: 100 reqs / 1 min
	cfg.RLEnabled = getEnv("RL_ENABLED", "true") == "true"
	cfg.RLLimit = getIntEnv("RL_LIMIT", 100)
	cfg.RLWindow = getDuration("RL_WINDOW", 1*time.Minute)

	cfg.CORSAllowedOrigins = getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5500", "http://127.0.0.1:5500"})

	cfg.SessionTTL = getDuration("SESSION_TTL", 30*time.Minute)
	cfg.SessionsPerUser = getIntEnv("SESSIONS_PER_USER", dashboard.DefaultMaxSessionsPerUser)
	cfg.GatewayReadTimeout = getDuration("GATEWAY_READ_TIMEOUT", 2*time.Second)
	cfg.GatewayWriteTimeout = getDuration("GATEWAY_WRITE_TIMEOUT", 5*time.Second)

	cfg.OTelEnabled = getEnv("OTEL_ENABLED", "false") == "true"
	cfg.OTelEndpoint = getEnv("OTEL_ENDPOINT", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	views := defaultViews
	if path := getEnv("DASHBOARD_VIEWS_FILE", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read DASHBOARD_VIEWS_FILE: %w", err)
		}
		views = b
	}
	v, err := ParseViews(views)
	if err != nil {
		return nil, err
	}
	cfg.Views = v

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DefaultViews returns the built-in dashboard views.
func DefaultViews() ([]dashboard.ViewConfig, error) {
	return ParseViews(defaultViews)
}

// ParseViews decodes a views document and checks that view names are unique
// and that every listed field is one the resource actually has.
func ParseViews(b []byte) ([]dashboard.ViewConfig, error) {
	var f viewsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse views: %w", err)
	}
	if len(f.Views) == 0 {
		return nil, fmt.Errorf("parse views: no views defined")
	}

	seen := make(map[string]bool, len(f.Views))
	for i, v := range f.Views {
		if err := validate.Struct(v); err != nil {
			return nil, fmt.Errorf("view %d (%s): %w", i, v.Name, err)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("duplicate view %q", v.Name)
		}
		seen[v.Name] = true

		known := resourceFields[v.Resource]
		for _, field := range append(append([]string(nil), v.SearchFields...), v.ServerFilters...) {
			if !known[field] {
				return nil, fmt.Errorf("view %s: unknown %s field %q", v.Name, v.Resource, field)
			}
		}
		for _, field := range v.ServerFilters {
			if field != "status" && field != "category" {
				return nil, fmt.Errorf("view %s: %q cannot be filtered server-side", v.Name, field)
			}
		}
	}
	return f.Views, nil
}

var resourceFields = map[domain.ResourceType]map[string]bool{
	domain.ResourceEvents: set("id", "title", "description", "category", "date", "time", "location", "ticket_type", "status", "organizer_id", "price"),
	domain.ResourceUsers:  set("id", "username", "email", "phone", "role"),
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getList(k string, def []string) []string {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
